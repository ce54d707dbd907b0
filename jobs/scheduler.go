package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/layer-3/quill/logging"
)

const maintenanceQueue = "maintenance"

// Scheduler enqueues a sweep every interval and runs the worker that
// processes it. Several replicas may run one; asynq delivers each task once.
type Scheduler struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	interval  time.Duration
	logger    logging.Logger
}

// NewScheduler wires sweeper into an asynq server backed by redisURL
func NewScheduler(redisURL string, interval time.Duration, sweeper *Sweeper, logger logging.Logger) (*Scheduler, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is nil")
	}
	if interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			maintenanceQueue: 1,
		},
		LogLevel: asynq.WarnLevel,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRevocationSweep, sweeper.ProcessTask)

	return &Scheduler{
		server:    server,
		mux:       mux,
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{LogLevel: asynq.WarnLevel}),
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}, nil
}

// Start registers the periodic task and starts the worker and the scheduler
func (s *Scheduler) Start() error {
	task := asynq.NewTask(TypeRevocationSweep, nil)
	if _, err := s.scheduler.Register(cronSpec(s.interval), task,
		asynq.Queue(maintenanceQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
	); err != nil {
		return fmt.Errorf("failed to register sweep task: %w", err)
	}

	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}
	if err := s.scheduler.Start(); err != nil {
		s.server.Shutdown()
		return fmt.Errorf("failed to start asynq scheduler: %w", err)
	}

	s.logger.Info(context.Background(), "revocation sweep scheduled", "interval", s.interval)
	return nil
}

// Shutdown stops the scheduler and waits for a running sweep to finish
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
	s.server.Shutdown()
}

func cronSpec(interval time.Duration) string {
	return "@every " + interval.String()
}
