package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quietdrop/quietdrop-api/pkg/jobs"
)

type sweeperRepository interface {
	ListExpiredMappings(ctx context.Context, now time.Time, limit int) ([]string, error)
	PurgeSecret(ctx context.Context, secretID string) error
}

// SweeperConfig tunes the background expiry sweep.
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
	Workers   int
}

// SweeperService proactively reclaims expired secrets. Without it,
// expired rows persist until someone tries to redeem them. Each scan
// enqueues purge jobs onto a worker queue so deletion happens off the
// scan loop.
type SweeperService struct {
	repo    sweeperRepository
	metrics *MetricsService
	logger  *zap.Logger
	config  SweeperConfig

	queue *jobs.Queue
	now   func() time.Time
}

// NewSweeperService constructs a SweeperService instance.
func NewSweeperService(repo sweeperRepository, metrics *MetricsService, logger *zap.Logger, config SweeperConfig) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	s := &SweeperService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}

	s.queue = jobs.NewQueue("secret-purge", s.handlePurge, jobs.QueueConfig{
		Workers: config.Workers,
		Logger:  logger,
	})

	return s
}

// Start launches the queue workers and the scan loop. It returns
// immediately; cancel the context to stop sweeping.
func (s *SweeperService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.queue.Stop()
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *SweeperService) sweep(ctx context.Context) {
	ids, err := s.repo.ListExpiredMappings(ctx, s.now().UTC(), s.config.BatchSize)
	if err != nil {
		s.logger.Warn("expiry sweep scan failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := s.queue.Enqueue(jobs.Job{ID: id, Type: "purge", Payload: id}); err != nil {
			s.logger.Warn("failed to enqueue purge", zap.String("secret_id", id), zap.Error(err))
			return
		}
	}

	if len(ids) > 0 {
		s.logger.Info("expiry sweep enqueued purges", zap.Int("count", len(ids)))
	}
}

func (s *SweeperService) handlePurge(ctx context.Context, job jobs.Job) error {
	secretID, ok := job.Payload.(string)
	if !ok {
		s.logger.Warn("purge job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	if err := s.repo.PurgeSecret(ctx, secretID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ObservePurge("sweeper")
	}
	return nil
}
