package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles carried in identity-service tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStaff   UserRole = "STAFF"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
	RoleParent  UserRole = "PARENT"
)

// JWTClaims mirrors the claims the identity service places in access tokens.
// Authentication itself is delegated; this API only validates and reads.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
