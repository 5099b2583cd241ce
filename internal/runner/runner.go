// Package runner executes pipelines as detached background goroutines and
// reconciles runs that never reached a terminal state.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/metrics"
)

// ErrShuttingDown is returned by Go after Shutdown has started.
var ErrShuttingDown = errors.New("runner is shutting down")

// Runner launches detached pipeline runs.
//
// Each run gets a fresh context derived from context.Background with the
// configured timeout, so a run outlives the HTTP request that triggered it.
// Panics inside a run are recovered and routed to the failure handler like
// any other error.
type Runner struct {
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
}

// New creates a Runner. timeout bounds a single pipeline run.
func New(timeout time.Duration, logger *logging.Logger, m *metrics.Metrics) (*Runner, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{timeout: timeout, logger: logger, metrics: m}, nil
}

// Go starts run on a new goroutine. pipeline and recordID identify the run
// in logs and metrics. If run returns an error or panics, onFailure is
// invoked with a short-lived context so the record can be marked failed.
func (r *Runner) Go(pipeline string, recordID uint, run func(ctx context.Context) error, onFailure func(ctx context.Context, err error)) error {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		err := r.invoke(ctx, run)
		duration := time.Since(start)

		if err != nil {
			status := "failed"
			if errors.Is(err, context.DeadlineExceeded) {
				r.logger.Warn(ctx, "pipeline run timed out",
					zap.String("pipeline", pipeline),
					zap.Uint("record_id", recordID),
					zap.Duration("duration", duration))
			} else {
				r.logger.Error(ctx, "pipeline run failed",
					zap.String("pipeline", pipeline),
					zap.Uint("record_id", recordID),
					zap.Duration("duration", duration),
					zap.Error(err))
			}
			if r.metrics != nil {
				r.metrics.RecordPipelineRun(pipeline, status, duration)
			}
			if onFailure != nil {
				// The run context may already be dead; the failure handler
				// gets its own deadline so the record still reaches failed.
				failCtx, failCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer failCancel()
				onFailure(failCtx, err)
			}
			return
		}

		r.logger.Info(ctx, "pipeline run completed",
			zap.String("pipeline", pipeline),
			zap.Uint("record_id", recordID),
			zap.Duration("duration", duration))
		if r.metrics != nil {
			r.metrics.RecordPipelineRun(pipeline, "completed", duration)
		}
	}()

	return nil
}

// invoke calls run, converting a panic into an error.
func (r *Runner) invoke(ctx context.Context, run func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panicked: %v", rec)
		}
	}()
	return run(ctx)
}

// Shutdown stops accepting new runs and waits for in-flight runs to finish
// or ctx to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pipeline runs: %w", ctx.Err())
	}
}
