// Package insights runs the LLM pipelines that turn raw customer feedback
// into analyses, feature proposals and development tasks.
package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/billing"
	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/notify"
	"github.com/fyrsmithlabs/productflow/internal/runner"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

var (
	// ErrNoDataFiles indicates an analysis was requested for a project with
	// no uploaded files.
	ErrNoDataFiles = errors.New("no data files uploaded")

	// ErrAnalysisNotCompleted indicates proposals were requested from an
	// analysis that has not completed.
	ErrAnalysisNotCompleted = errors.New("analysis is not completed yet")

	// ErrBadCompletion indicates the model returned output that does not
	// decode into the expected shape.
	ErrBadCompletion = errors.New("unparseable model output")
)

// maxFileChars bounds how much of each data file goes into the analysis
// prompt.
const maxFileChars = 15000

// fetchLimitBytes bounds how much of a file body is read before character
// truncation is applied.
const fetchLimitBytes = 4 << 20

// Service runs analysis, proposal and task generation.
type Service struct {
	store    *store.Store
	invoker  llm.Invoker
	notifier notify.Notifier
	runner   *runner.Runner
	limiter  *billing.Limiter
	client   *http.Client
	logger   *logging.Logger
}

// NewService creates an insights service.
func NewService(st *store.Store, invoker llm.Invoker, notifier notify.Notifier, r *runner.Runner, limiter *billing.Limiter, client *http.Client, logger *logging.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if r == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:    st,
		invoker:  invoker,
		notifier: notifier,
		runner:   r,
		limiter:  limiter,
		client:   client,
		logger:   logger,
	}, nil
}

// notifyOwner delivers a notification on a best-effort basis.
func (s *Service) notifyOwner(ctx context.Context, title, content string) {
	if err := s.notifier.Notify(ctx, title, content); err != nil {
		s.logger.Warn(ctx, "notification delivery failed", zap.Error(err))
	}
}

// truncateChars limits s to max characters.
func truncateChars(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
