package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/blob"
	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

// RunAnalysis validates preconditions, records a processing analysis and
// launches the pipeline on a detached run. The returned record is still
// processing; callers poll for the terminal state.
func (s *Service) RunAnalysis(ctx context.Context, userID, projectID uint) (*store.Analysis, error) {
	project, err := s.store.GetProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	files, err := s.store.ListProjectFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoDataFiles
	}

	if err := s.limiter.CheckAnalysis(ctx, userID); err != nil {
		return nil, err
	}

	analysis := &store.Analysis{
		ProjectID: projectID,
		UserID:    userID,
		Status:    store.AnalysisProcessing,
	}
	if err := s.store.CreateAnalysis(ctx, analysis); err != nil {
		return nil, err
	}

	id := analysis.ID
	err = s.runner.Go("analysis", id,
		func(runCtx context.Context) error {
			return s.runAnalysis(runCtx, id, project.Name, files)
		},
		func(failCtx context.Context, runErr error) {
			if err := s.store.FailAnalysis(failCtx, id); err != nil {
				s.logger.Error(failCtx, "marking analysis failed",
					zap.Uint("analysis_id", id), zap.Error(err))
			}
		})
	if err != nil {
		// The runner is draining; the sweeper will reconcile the record, but
		// fail it now while we still can.
		if failErr := s.store.FailAnalysis(ctx, id); failErr != nil {
			s.logger.Error(ctx, "marking analysis failed",
				zap.Uint("analysis_id", id), zap.Error(failErr))
		}
		return nil, err
	}

	return analysis, nil
}

// analysisPayload is the shape the model must return for an analysis run.
type analysisPayload struct {
	Themes           []json.RawMessage `json:"themes"`
	PainPoints       []json.RawMessage `json:"painPoints"`
	FeatureRequests  []json.RawMessage `json:"featureRequests"`
	SentimentSummary json.RawMessage   `json:"sentimentSummary"`
}

func (s *Service) runAnalysis(ctx context.Context, analysisID uint, projectName string, files []store.DataFile) error {
	combined := s.gatherFileContents(ctx, files)

	raw, err := s.invoker.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: analysisSystemPrompt(projectName)},
		{Role: llm.RoleUser, Content: "Here is the customer feedback and usage data to analyze:\n\n" + combined},
	}, analysisFormat())
	if err != nil {
		return err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrBadCompletion, err)
	}
	// Results are all-or-nothing: a payload missing any category fails the
	// run instead of persisting a partial record.
	if len(payload.Themes) == 0 {
		return fmt.Errorf("%w: missing themes", ErrBadCompletion)
	}
	if len(payload.PainPoints) == 0 {
		return fmt.Errorf("%w: missing pain points", ErrBadCompletion)
	}
	if len(payload.FeatureRequests) == 0 {
		return fmt.Errorf("%w: missing feature requests", ErrBadCompletion)
	}
	if len(payload.SentimentSummary) == 0 {
		return fmt.Errorf("%w: missing sentiment summary", ErrBadCompletion)
	}

	themes, err := json.Marshal(payload.Themes)
	if err != nil {
		return fmt.Errorf("serializing themes: %w", err)
	}
	painPoints, err := json.Marshal(payload.PainPoints)
	if err != nil {
		return fmt.Errorf("serializing pain points: %w", err)
	}
	featureRequests, err := json.Marshal(payload.FeatureRequests)
	if err != nil {
		return fmt.Errorf("serializing feature requests: %w", err)
	}

	err = s.store.CompleteAnalysis(ctx, analysisID, store.AnalysisResults{
		Themes:           string(themes),
		PainPoints:       string(painPoints),
		FeatureRequests:  string(featureRequests),
		SentimentSummary: string(payload.SentimentSummary),
		RawAnalysis:      raw,
	})
	if err != nil {
		return err
	}

	s.notifyOwner(ctx,
		fmt.Sprintf("Analysis Complete - %s", projectName),
		fmt.Sprintf("Customer feedback analysis for %q is complete. Found %d themes, %d pain points, and %d feature requests.",
			projectName, len(payload.Themes), len(payload.PainPoints), len(payload.FeatureRequests)))
	return nil
}

// gatherFileContents fetches each file's content, truncated per file. A file
// that cannot be fetched contributes a placeholder instead of failing the
// run.
func (s *Service) gatherFileContents(ctx context.Context, files []store.DataFile) string {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		text, err := blob.FetchText(ctx, s.client, f.FileURL, fetchLimitBytes)
		if err != nil {
			s.logger.Warn(ctx, "data file fetch failed",
				zap.Uint("file_id", f.ID),
				zap.String("file_name", f.FileName),
				zap.Error(err))
			sections = append(sections, fmt.Sprintf("--- File: %s (%s) --- [Could not fetch content]", f.FileName, f.FileType))
			continue
		}
		sections = append(sections, fmt.Sprintf("--- File: %s (%s) ---\n%s", f.FileName, f.FileType, truncateChars(text, maxFileChars)))
	}
	return strings.Join(sections, "\n\n")
}

func analysisSystemPrompt(projectName string) string {
	return fmt.Sprintf(`You are an expert product analyst. Analyze the following customer feedback data and product usage data for the product %q. Extract key insights and return a structured JSON response.

You MUST return valid JSON matching this exact schema:
{
  "themes": [{"name": "string", "description": "string", "frequency": number, "sentiment": "positive"|"negative"|"neutral"|"mixed"}],
  "painPoints": [{"title": "string", "description": "string", "severity": "critical"|"high"|"medium"|"low", "frequency": number}],
  "featureRequests": [{"title": "string", "description": "string", "requestCount": number, "priority": "critical"|"high"|"medium"|"low"}],
  "sentimentSummary": {"overall": "positive"|"negative"|"neutral"|"mixed", "positivePercent": number, "negativePercent": number, "neutralPercent": number, "highlights": ["string"]}
}

- "frequency" and "requestCount" should be numbers from 1-100 representing relative frequency
- Include 3-8 items per category
- Be specific and actionable in descriptions
- Base everything on the actual data provided`, projectName)
}

func analysisFormat() *llm.ResponseFormat {
	sentiment := llm.StringEnum("positive", "negative", "neutral", "mixed")
	level := llm.StringEnum("critical", "high", "medium", "low")

	return &llm.ResponseFormat{
		Name: "analysis_result",
		Schema: llm.Object(map[string]*llm.Schema{
			"themes": llm.Array(llm.Object(map[string]*llm.Schema{
				"name":        llm.String(),
				"description": llm.String(),
				"frequency":   llm.Number(),
				"sentiment":   sentiment,
			})),
			"painPoints": llm.Array(llm.Object(map[string]*llm.Schema{
				"title":       llm.String(),
				"description": llm.String(),
				"severity":    level,
				"frequency":   llm.Number(),
			})),
			"featureRequests": llm.Array(llm.Object(map[string]*llm.Schema{
				"title":        llm.String(),
				"description":  llm.String(),
				"requestCount": llm.Number(),
				"priority":     level,
			})),
			"sentimentSummary": llm.Object(map[string]*llm.Schema{
				"overall":         sentiment,
				"positivePercent": llm.Number(),
				"negativePercent": llm.Number(),
				"neutralPercent":  llm.Number(),
				"highlights":      llm.Array(llm.String()),
			}),
		}),
	}
}
