package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/pkg/config"
	"github.com/classbridge/school-api/pkg/jobs"
)

// RollNumberDispatcher hands dirty scopes to the recalculator after the
// triggering transaction has committed. Dispatch never blocks and never
// fails the caller: a scope that cannot be queued is logged and left for
// the next mutation of that scope (or a manual trigger) to heal.
type RollNumberDispatcher struct {
	recalc *RollNumberService
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewRollNumberDispatcher wires the dispatcher onto a background queue.
func NewRollNumberDispatcher(recalc *RollNumberService, cfg config.RollsConfig, logger *zap.Logger) *RollNumberDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &RollNumberDispatcher{recalc: recalc, logger: logger}
	d.queue = jobs.NewQueue("roll-recalc", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the queue workers.
func (d *RollNumberDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *RollNumberDispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch enqueues a recalculation for the scope.
func (d *RollNumberDispatcher) Dispatch(scope models.RollScope) {
	err := d.queue.TryEnqueue(jobs.Job{
		ID:      scope.Key(),
		Type:    "recalculate_rolls",
		Payload: scope,
	})
	if err != nil {
		d.logger.Error("failed to dispatch roll recalculation",
			zap.String("scope", scope.Key()), zap.Error(err))
	}
}

func (d *RollNumberDispatcher) handle(ctx context.Context, job jobs.Job) error {
	scope, ok := job.Payload.(models.RollScope)
	if !ok {
		d.logger.Error("unexpected roll job payload", zap.String("job_id", job.ID))
		return nil
	}
	return d.recalc.Recalculate(ctx, scope)
}
