package insights

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

// taskPayload is the shape the model must return for task generation.
type taskPayload struct {
	Tasks []struct {
		Title          string  `json:"title"`
		Description    string  `json:"description"`
		Category       string  `json:"category"`
		Priority       string  `json:"priority"`
		EstimatedHours float64 `json:"estimatedHours"`
	} `json:"tasks"`
}

// GenerateTasks breaks a proposal down into development tasks. Existing
// tasks for the proposal are replaced as a batch; sort order follows the
// model's dependency ordering.
func (s *Service) GenerateTasks(ctx context.Context, userID, projectID, proposalID uint) ([]store.Task, error) {
	if _, err := s.store.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}

	proposal, err := s.store.GetProposal(ctx, proposalID, projectID)
	if err != nil {
		return nil, err
	}

	// Regeneration resets first: a failed generation leaves the proposal
	// with no tasks rather than a stale set.
	if err := s.store.DeleteProposalTasks(ctx, proposalID); err != nil {
		return nil, err
	}

	raw, err := s.invoker.Invoke(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: taskSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Feature: %s\n\nProblem: %s\n\nSolution: %s\n\nUI Changes: %s\n\nData Model Changes: %s\n\nWorkflow Changes: %s",
			proposal.Title, proposal.ProblemStatement, proposal.ProposedSolution,
			proposal.UIChanges, proposal.DataModelChanges, proposal.WorkflowChanges)},
	}, taskFormat())
	if err != nil {
		return nil, err
	}

	var payload taskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCompletion, err)
	}
	if len(payload.Tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks returned", ErrBadCompletion)
	}

	tasks := make([]store.Task, 0, len(payload.Tasks))
	for i, t := range payload.Tasks {
		tasks = append(tasks, store.Task{
			FeatureProposalID: proposalID,
			ProjectID:         projectID,
			UserID:            userID,
			Title:             t.Title,
			Description:       t.Description,
			Category:          t.Category,
			Priority:          t.Priority,
			EstimatedHours:    t.EstimatedHours,
			SortOrder:         i,
			Status:            store.TaskTodo,
		})
	}
	if err := s.store.CreateTasks(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

const taskSystemPrompt = `You are a senior technical lead. Break down the following feature proposal into specific, actionable development tasks suitable for a coding agent or development team.

Return valid JSON matching this schema:
{
  "tasks": [{
    "title": "string (clear, concise task title)",
    "description": "string (detailed description with acceptance criteria)",
    "category": "frontend"|"backend"|"database"|"api"|"testing"|"devops"|"design",
    "priority": "critical"|"high"|"medium"|"low",
    "estimatedHours": number
  }]
}

Generate 5-12 tasks. Order them by dependency (things that need to happen first should come first). Be specific about implementation details.`

func taskFormat() *llm.ResponseFormat {
	return &llm.ResponseFormat{
		Name: "task_breakdown",
		Schema: llm.Object(map[string]*llm.Schema{
			"tasks": llm.Array(llm.Object(map[string]*llm.Schema{
				"title":          llm.String(),
				"description":    llm.String(),
				"category":       llm.StringEnum("frontend", "backend", "database", "api", "testing", "devops", "design"),
				"priority":       llm.StringEnum("critical", "high", "medium", "low"),
				"estimatedHours": llm.Number(),
			})),
		}),
	}
}
