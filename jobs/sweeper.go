// Package jobs runs the periodic garbage collection of the revocation store.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/layer-3/quill/logging"
	"github.com/layer-3/quill/ports"
)

// TypeRevocationSweep is the asynq task type of a sweep
const TypeRevocationSweep = "revocation:sweep"

// Sweeper removes revocation records whose token has expired
type Sweeper struct {
	store  ports.RevocationStore
	logger logging.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper for store
func NewSweeper(store ports.RevocationStore, logger logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Sweeper{
		store:  store,
		logger: logger.With("component", "sweeper"),
		now:    time.Now,
	}
}

// Sweep runs one pass and returns the number of removed records
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep revocation store: %w", err)
	}
	if removed > 0 {
		s.logger.Info(ctx, "swept expired revocation records", "removed", removed)
	}
	return removed, nil
}

// ProcessTask handles TypeRevocationSweep tasks
func (s *Sweeper) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.Sweep(ctx)
	return err
}

// Run sweeps every interval until ctx is done. Used when no task queue is
// configured.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error(ctx, "revocation sweep failed", "error", err)
			}
		}
	}
}
