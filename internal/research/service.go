// Package research runs the two-stage company research pipeline: a gather
// stage that produces individual findings and a synthesis stage that
// aggregates them into a report.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/billing"
	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/notify"
	"github.com/fyrsmithlabs/productflow/internal/runner"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

var (
	// ErrEmptyURL indicates a research request with no company URL.
	ErrEmptyURL = errors.New("company URL is required")

	// ErrBadCompletion indicates the model returned output that does not
	// decode into the expected shape.
	ErrBadCompletion = errors.New("unparseable model output")
)

// Service runs company research.
type Service struct {
	store    *store.Store
	invoker  llm.Invoker
	notifier notify.Notifier
	runner   *runner.Runner
	limiter  *billing.Limiter
	logger   *logging.Logger
}

// NewService creates a research service.
func NewService(st *store.Store, invoker llm.Invoker, notifier notify.Notifier, r *runner.Runner, limiter *billing.Limiter, logger *logging.Logger) (*Service, error) {
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
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:    st,
		invoker:  invoker,
		notifier: notifier,
		runner:   r,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// Start validates preconditions, records a searching research run and
// launches the pipeline on a detached run. The returned record is still
// searching; callers poll for the terminal state.
func (s *Service) Start(ctx context.Context, userID, projectID uint, companyURL string) (*store.CompanyResearch, error) {
	if _, err := s.store.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}

	normalized := NormalizeURL(companyURL)
	if normalized == "" {
		return nil, ErrEmptyURL
	}

	if err := s.limiter.CheckResearch(ctx, userID); err != nil {
		return nil, err
	}

	research := &store.CompanyResearch{
		ProjectID:   projectID,
		UserID:      userID,
		CompanyURL:  normalized,
		CompanyName: FallbackName(normalized),
		Status:      store.ResearchSearching,
	}
	if err := s.store.CreateResearch(ctx, research); err != nil {
		return nil, err
	}

	id := research.ID
	err := s.runner.Go("research", id,
		func(runCtx context.Context) error {
			return s.run(runCtx, id, projectID, normalized, research.CompanyName)
		},
		func(failCtx context.Context, runErr error) {
			if err := s.store.FailResearch(failCtx, id); err != nil {
				s.logger.Error(failCtx, "marking research failed",
					zap.Uint("research_id", id), zap.Error(err))
			}
		})
	if err != nil {
		if failErr := s.store.FailResearch(ctx, id); failErr != nil {
			s.logger.Error(ctx, "marking research failed",
				zap.Uint("research_id", id), zap.Error(failErr))
		}
		return nil, err
	}

	return research, nil
}

// Delete removes a research run and its findings.
func (s *Service) Delete(ctx context.Context, userID, projectID, id uint) error {
	if _, err := s.store.GetProject(ctx, projectID, userID); err != nil {
		return err
	}
	if _, err := s.store.GetResearch(ctx, id, projectID); err != nil {
		return err
	}
	return s.store.DeleteResearch(ctx, id, projectID)
}

// gatherPayload is the Stage A shape.
type gatherPayload struct {
	CompanyName string `json:"companyName"`
	Description string `json:"description"`
	Findings    []struct {
		Source         string   `json:"source"`
		SourceType     string   `json:"sourceType"`
		SourceURL      string   `json:"sourceUrl"`
		Title          string   `json:"title"`
		Content        string   `json:"content"`
		Sentiment      string   `json:"sentiment"`
		SentimentScore int      `json:"sentimentScore"`
		Category       string   `json:"category"`
		Tags           []string `json:"tags"`
	} `json:"findings"`
}

// synthesisPayload is the Stage B shape.
type synthesisPayload struct {
	Summary          string `json:"summary"`
	OverallSentiment string `json:"overallSentiment"`
	KeyStrengths     []struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		EvidenceCount int    `json:"evidenceCount"`
	} `json:"keyStrengths"`
	KeyWeaknesses []struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		EvidenceCount int    `json:"evidenceCount"`
	} `json:"keyWeaknesses"`
	Recommendations []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		Category    string `json:"category"`
	} `json:"recommendations"`
}

// run executes both stages. Stage A persists findings before Stage B
// starts, so a Stage B failure leaves the findings queryable under a failed
// record.
func (s *Service) run(ctx context.Context, researchID, projectID uint, companyURL, fallbackName string) error {
	gathered, raw, err := s.gather(ctx, companyURL)
	if err != nil {
		return err
	}

	companyName := strings.TrimSpace(gathered.CompanyName)
	if companyName == "" {
		companyName = fallbackName
	}

	if err := s.store.SetResearchAnalyzing(ctx, researchID, companyName, raw); err != nil {
		return err
	}

	findings := make([]store.ResearchFinding, 0, len(gathered.Findings))
	positive, negative, neutral := 0, 0, 0
	for _, f := range gathered.Findings {
		tags, err := json.Marshal(f.Tags)
		if err != nil {
			return fmt.Errorf("serializing tags: %w", err)
		}
		findings = append(findings, store.ResearchFinding{
			ResearchID:     researchID,
			ProjectID:      projectID,
			Source:         f.Source,
			SourceType:     f.SourceType,
			Title:          f.Title,
			Content:        f.Content,
			Sentiment:      f.Sentiment,
			SentimentScore: f.SentimentScore,
			Category:       f.Category,
			Tags:           string(tags),
			SourceURL:      f.SourceURL,
		})
		switch f.Sentiment {
		case "positive":
			positive++
		case "negative":
			negative++
		default:
			neutral++
		}
	}
	if err := s.store.CreateFindings(ctx, findings); err != nil {
		return err
	}

	synthesis, err := s.synthesize(ctx, companyName, gathered)
	if err != nil {
		return err
	}

	strengths, err := json.Marshal(synthesis.KeyStrengths)
	if err != nil {
		return fmt.Errorf("serializing strengths: %w", err)
	}
	weaknesses, err := json.Marshal(synthesis.KeyWeaknesses)
	if err != nil {
		return fmt.Errorf("serializing weaknesses: %w", err)
	}
	recommendations, err := json.Marshal(synthesis.Recommendations)
	if err != nil {
		return fmt.Errorf("serializing recommendations: %w", err)
	}

	err = s.store.CompleteResearch(ctx, researchID, store.ResearchResults{
		OverallSentiment: synthesis.OverallSentiment,
		PositiveCount:    positive,
		NegativeCount:    negative,
		NeutralCount:     neutral,
		Summary:          synthesis.Summary,
		KeyStrengths:     string(strengths),
		KeyWeaknesses:    string(weaknesses),
		Recommendations:  string(recommendations),
	})
	if err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx,
		fmt.Sprintf("Company Research Complete - %s", companyName),
		fmt.Sprintf("Research on %q is complete: %d positive, %d negative, and %d neutral findings. Overall sentiment: %s.",
			companyName, positive, negative, neutral, synthesis.OverallSentiment)); err != nil {
		s.logger.Warn(ctx, "notification delivery failed", zap.Error(err))
	}
	return nil
}

func (s *Service) gather(ctx context.Context, companyURL string) (*gatherPayload, string, error) {
	raw, err := s.invoker.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: gatherSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Research the company at %s and gather findings about it.", companyURL)},
	}, gatherFormat())
	if err != nil {
		return nil, "", err
	}

	var payload gatherPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadCompletion, err)
	}
	if len(payload.Findings) == 0 {
		return nil, "", fmt.Errorf("%w: no findings returned", ErrBadCompletion)
	}
	return &payload, raw, nil
}

func (s *Service) synthesize(ctx context.Context, companyName string, gathered *gatherPayload) (*synthesisPayload, error) {
	serialized, err := json.Marshal(gathered.Findings)
	if err != nil {
		return nil, fmt.Errorf("serializing findings: %w", err)
	}

	raw, err := s.invoker.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: synthesisSystemPrompt(companyName)},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Findings:\n%s", serialized)},
	}, synthesisFormat())
	if err != nil {
		return nil, err
	}

	var payload synthesisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCompletion, err)
	}
	if payload.Summary == "" || payload.OverallSentiment == "" {
		return nil, fmt.Errorf("%w: missing summary or sentiment", ErrBadCompletion)
	}
	if len(payload.KeyStrengths) == 0 || len(payload.KeyWeaknesses) == 0 || len(payload.Recommendations) == 0 {
		return nil, fmt.Errorf("%w: missing strengths, weaknesses or recommendations", ErrBadCompletion)
	}
	return &payload, nil
}
