package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/metrics"
)

// StaleStore marks pipeline records stuck in a non-terminal state as failed.
type StaleStore interface {
	MarkStaleAnalyses(ctx context.Context, cutoff time.Time) (int64, error)
	MarkStaleResearch(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweeperConfig holds settings for the stale-run sweeper.
type SweeperConfig struct {
	// Interval is the time between sweeps.
	Interval time.Duration
	// GracePeriod is how long a run may stay non-terminal before it is
	// considered abandoned. It must exceed the runner timeout, otherwise
	// the sweeper would fail runs that are still in flight.
	GracePeriod time.Duration
}

// Validate validates the configuration.
func (c SweeperConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive")
	}
	return nil
}

// Sweeper periodically fails analysis and research runs abandoned by a
// crashed process. A run in flight is never older than the runner timeout,
// so the grace period keeps live runs out of reach.
type Sweeper struct {
	config  SweeperConfig
	store   StaleStore
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
}

// NewSweeper creates a Sweeper.
func NewSweeper(cfg SweeperConfig, store StaleStore, logger *logging.Logger, m *metrics.Metrics) (*Sweeper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		config:  cfg,
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start runs the sweep loop until Stop is called. An immediate sweep runs
// first so a restart reconciles abandoned runs without waiting a full
// interval.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)

		s.sweep(context.Background())

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop stops the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// Sweep runs a single reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.config.GracePeriod)

	analyses, err := s.store.MarkStaleAnalyses(ctx, cutoff)
	if err != nil {
		s.logger.Error(ctx, "sweeping stale analyses failed", zap.Error(err))
	} else if analyses > 0 {
		s.logger.Warn(ctx, "marked stale analyses failed",
			zap.Int64("count", analyses),
			zap.Time("cutoff", cutoff))
		if s.metrics != nil {
			s.metrics.RecordSweep("analysis", analyses)
		}
	}

	research, err := s.store.MarkStaleResearch(ctx, cutoff)
	if err != nil {
		s.logger.Error(ctx, "sweeping stale research failed", zap.Error(err))
	} else if research > 0 {
		s.logger.Warn(ctx, "marked stale research failed",
			zap.Int64("count", research),
			zap.Time("cutoff", cutoff))
		if s.metrics != nil {
			s.metrics.RecordSweep("research", research)
		}
	}
}
