package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/pkg/config"
)

func TestRollNumberDispatcherProcessesScope(t *testing.T) {
	repo := &mockRollRepo{count: 2}
	recalc := NewRollNumberService(repo, &mockResolver{}, nil, nil, zap.NewNop())
	dispatcher := NewRollNumberDispatcher(recalc, config.RollsConfig{Workers: 1, QueueSize: 4}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	scope := models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}
	dispatcher.Dispatch(scope)

	require.Eventually(t, func() bool {
		return len(repo.scopes) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, scope, repo.scopes[0])
}

func TestRollNumberDispatcherFullQueueDoesNotBlock(t *testing.T) {
	recalc := NewRollNumberService(&mockRollRepo{}, &mockResolver{}, nil, nil, zap.NewNop())
	dispatcher := NewRollNumberDispatcher(recalc, config.RollsConfig{Workers: 1, QueueSize: 1}, zap.NewNop())

	// Workers never started: every dispatch is dropped with a log line
	// instead of blocking or failing the caller.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			dispatcher.Dispatch(models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full queue")
	}
}
