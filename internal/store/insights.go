package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ─── Analyses ───

// CreateAnalysis inserts an analysis record and fills in its id.
func (s *Store) CreateAnalysis(ctx context.Context, a *Analysis) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("creating analysis: %w", err)
	}
	return nil
}

// ListProjectAnalyses returns a project's analyses, newest first.
func (s *Store) ListProjectAnalyses(ctx context.Context, projectID uint) ([]Analysis, error) {
	var analyses []Analysis
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return analyses, nil
}

// GetAnalysis returns the analysis scoped to its project.
func (s *Store) GetAnalysis(ctx context.Context, id, projectID uint) (*Analysis, error) {
	var a Analysis
	err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: analysis %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}
	return &a, nil
}

// AnalysisResults holds the serialized JSON payloads stored on completion.
type AnalysisResults struct {
	Themes           string
	PainPoints       string
	FeatureRequests  string
	SentimentSummary string
	RawAnalysis      string
}

// CompleteAnalysis transitions the analysis to completed with all result
// fields populated and the completion timestamp set.
func (s *Store) CompleteAnalysis(ctx context.Context, id uint, results AnalysisResults) error {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Model(&Analysis{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            AnalysisCompleted,
			"themes":            results.Themes,
			"pain_points":       results.PainPoints,
			"feature_requests":  results.FeatureRequests,
			"sentiment_summary": results.SentimentSummary,
			"raw_analysis":      results.RawAnalysis,
			"completed_at":      &now,
		}).Error
	if err != nil {
		return fmt.Errorf("completing analysis %d: %w", id, err)
	}
	return nil
}

// FailAnalysis transitions the analysis to failed, leaving result fields
// empty.
func (s *Store) FailAnalysis(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&Analysis{}).
		Where("id = ?", id).
		Update("status", AnalysisFailed).Error
	if err != nil {
		return fmt.Errorf("failing analysis %d: %w", id, err)
	}
	return nil
}

// ─── Feature proposals ───

// CreateProposal inserts a proposal and fills in its id.
func (s *Store) CreateProposal(ctx context.Context, p *FeatureProposal) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("creating proposal: %w", err)
	}
	return nil
}

// ListProjectProposals returns a project's proposals, newest first.
func (s *Store) ListProjectProposals(ctx context.Context, projectID uint) ([]FeatureProposal, error) {
	var proposals []FeatureProposal
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&proposals).Error
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	return proposals, nil
}

// GetProposal returns the proposal scoped to its project.
func (s *Store) GetProposal(ctx context.Context, id, projectID uint) (*FeatureProposal, error) {
	var p FeatureProposal
	err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: proposal %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting proposal: %w", err)
	}
	return &p, nil
}

// UpdateProposalStatus changes a proposal's status, the only mutable field.
func (s *Store) UpdateProposalStatus(ctx context.Context, id uint, status string) error {
	res := s.db.WithContext(ctx).
		Model(&FeatureProposal{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("updating proposal status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: proposal %d", ErrNotFound, id)
	}
	return nil
}

// ─── Tasks ───

// CreateTasks batch-inserts tasks.
func (s *Store) CreateTasks(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&tasks).Error; err != nil {
		return fmt.Errorf("creating tasks: %w", err)
	}
	return nil
}

// ListProposalTasks returns a proposal's tasks in sort order.
func (s *Store) ListProposalTasks(ctx context.Context, proposalID uint) ([]Task, error) {
	var tasks []Task
	err := s.db.WithContext(ctx).
		Where("feature_proposal_id = ?", proposalID).
		Order("sort_order ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("listing proposal tasks: %w", err)
	}
	return tasks, nil
}

// ListProjectTasks returns all tasks in a project in sort order.
func (s *Store) ListProjectTasks(ctx context.Context, projectID uint) ([]Task, error) {
	var tasks []Task
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("listing project tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskStatus changes a task's status, scoped to its project.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, projectID uint, status string) error {
	res := s.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND project_id = ?", id, projectID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("updating task status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: task %d", ErrNotFound, id)
	}
	return nil
}

// DeleteProposalTasks removes all tasks for a proposal. Regeneration uses
// full replace semantics, not merge.
func (s *Store) DeleteProposalTasks(ctx context.Context, proposalID uint) error {
	err := s.db.WithContext(ctx).
		Where("feature_proposal_id = ?", proposalID).
		Delete(&Task{}).Error
	if err != nil {
		return fmt.Errorf("deleting proposal tasks: %w", err)
	}
	return nil
}
