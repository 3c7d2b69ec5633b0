package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/pkg/config"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func identityClaims(issuer string) *models.JWTClaims {
	now := time.Now().UTC()
	return &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "idp"})

	claims, err := svc.ValidateToken(signToken(t, "secret", identityClaims("idp")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret"})

	_, err := svc.ValidateToken(signToken(t, "other", identityClaims("")))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsWrongIssuer(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "idp"})

	_, err := svc.ValidateToken(signToken(t, "secret", identityClaims("someone-else")))
	require.Error(t, err)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret"})

	claims := identityClaims("")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().UTC().Add(-time.Minute))
	_, err := svc.ValidateToken(signToken(t, "secret", claims))
	require.Error(t, err)
}

func TestTokenServiceRejectsMissingIdentity(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret"})

	claims := identityClaims("")
	claims.UserID = ""
	_, err := svc.ValidateToken(signToken(t, "secret", claims))
	require.Error(t, err)
}
