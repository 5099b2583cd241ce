package insights

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

// proposalPayload is the shape the model must return for proposal
// generation.
type proposalPayload struct {
	Proposals []struct {
		Title            string `json:"title"`
		ProblemStatement string `json:"problemStatement"`
		ProposedSolution string `json:"proposedSolution"`
		UIChanges        string `json:"uiChanges"`
		DataModelChanges string `json:"dataModelChanges"`
		WorkflowChanges  string `json:"workflowChanges"`
		Priority         string `json:"priority"`
		Effort           string `json:"effort"`
	} `json:"proposals"`
}

// GenerateProposals derives feature proposals from a completed analysis.
// Generation runs synchronously; each call appends new proposals rather
// than replacing earlier ones.
func (s *Service) GenerateProposals(ctx context.Context, userID, projectID, analysisID uint) ([]store.FeatureProposal, error) {
	analysis, err := s.store.GetAnalysis(ctx, analysisID, projectID)
	if err != nil {
		return nil, err
	}
	if analysis.Status != store.AnalysisCompleted {
		return nil, ErrAnalysisNotCompleted
	}

	project, err := s.store.GetProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	raw, err := s.invoker.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: proposalSystemPrompt(project.Name)},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Analysis data:\nThemes: %s\nPain Points: %s\nFeature Requests: %s\nSentiment: %s",
			analysis.Themes, analysis.PainPoints, analysis.FeatureRequests, analysis.SentimentSummary)},
	}, proposalFormat())
	if err != nil {
		return nil, err
	}

	var payload proposalPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCompletion, err)
	}
	if len(payload.Proposals) == 0 {
		return nil, fmt.Errorf("%w: no proposals returned", ErrBadCompletion)
	}

	created := make([]store.FeatureProposal, 0, len(payload.Proposals))
	for _, p := range payload.Proposals {
		proposal := store.FeatureProposal{
			ProjectID:        projectID,
			AnalysisID:       analysisID,
			UserID:           userID,
			Title:            p.Title,
			ProblemStatement: p.ProblemStatement,
			ProposedSolution: p.ProposedSolution,
			UIChanges:        p.UIChanges,
			DataModelChanges: p.DataModelChanges,
			WorkflowChanges:  p.WorkflowChanges,
			Priority:         p.Priority,
			Effort:           p.Effort,
			Status:           store.ProposalDraft,
		}
		if err := s.store.CreateProposal(ctx, &proposal); err != nil {
			return nil, err
		}
		created = append(created, proposal)
	}

	s.notifyOwner(ctx,
		fmt.Sprintf("New Feature Proposals Generated - %s", project.Name),
		fmt.Sprintf("%d feature proposals have been generated from the latest analysis of %q. Review them to decide what to build next.",
			len(created), project.Name))

	return created, nil
}

func proposalSystemPrompt(projectName string) string {
	return fmt.Sprintf(`You are an expert product manager. Based on the analysis data for %q, generate 2-4 detailed feature proposals. Each proposal should address the most impactful pain points and feature requests.

Return valid JSON matching this schema:
{
  "proposals": [{
    "title": "string",
    "problemStatement": "string (2-3 paragraphs explaining the problem based on customer feedback)",
    "proposedSolution": "string (2-3 paragraphs describing the solution)",
    "uiChanges": "string (specific UI changes needed)",
    "dataModelChanges": "string (database/data model changes needed)",
    "workflowChanges": "string (workflow/process changes needed)",
    "priority": "critical"|"high"|"medium"|"low",
    "effort": "small"|"medium"|"large"|"xlarge"
  }]
}

Be specific and actionable. Reference actual customer feedback themes and pain points.`, projectName)
}

func proposalFormat() *llm.ResponseFormat {
	return &llm.ResponseFormat{
		Name: "feature_proposals",
		Schema: llm.Object(map[string]*llm.Schema{
			"proposals": llm.Array(llm.Object(map[string]*llm.Schema{
				"title":            llm.String(),
				"problemStatement": llm.String(),
				"proposedSolution": llm.String(),
				"uiChanges":        llm.String(),
				"dataModelChanges": llm.String(),
				"workflowChanges":  llm.String(),
				"priority":         llm.StringEnum("critical", "high", "medium", "low"),
				"effort":           llm.StringEnum("small", "medium", "large", "xlarge"),
			})),
		}),
	}
}
