package store

import (
	"context"
	"fmt"
	"time"
)

// ProjectStats summarizes a project's child-entity counts.
type ProjectStats struct {
	Files     int64 `json:"files"`
	Analyses  int64 `json:"analyses"`
	Proposals int64 `json:"proposals"`
	Tasks     int64 `json:"tasks"`
	Research  int64 `json:"research"`
}

// GetProjectStats returns child-entity counts for a project.
func (s *Store) GetProjectStats(ctx context.Context, projectID uint) (*ProjectStats, error) {
	stats := &ProjectStats{}
	for _, c := range []struct {
		model interface{}
		dst   *int64
	}{
		{&DataFile{}, &stats.Files},
		{&Analysis{}, &stats.Analyses},
		{&FeatureProposal{}, &stats.Proposals},
		{&Task{}, &stats.Tasks},
		{&CompanyResearch{}, &stats.Research},
	} {
		err := s.db.WithContext(ctx).
			Model(c.model).
			Where("project_id = ?", projectID).
			Count(c.dst).Error
		if err != nil {
			return nil, fmt.Errorf("counting project stats: %w", err)
		}
	}
	return stats, nil
}

// CountProjects returns the user's total project count.
func (s *Store) CountProjects(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&Project{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting projects: %w", err)
	}
	return n, nil
}

// CountProjectFiles returns the number of files uploaded to a project.
func (s *Store) CountProjectFiles(ctx context.Context, projectID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&DataFile{}).
		Where("project_id = ?", projectID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting project files: %w", err)
	}
	return n, nil
}

// CountAnalysesSince returns the user's analyses created at or after since.
func (s *Store) CountAnalysesSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&Analysis{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting analyses: %w", err)
	}
	return n, nil
}

// CountResearchSince returns the user's research runs created at or after
// since.
func (s *Store) CountResearchSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&CompanyResearch{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting research: %w", err)
	}
	return n, nil
}

// ─── Stale-run reconciliation ───

// MarkStaleAnalyses fails analyses stuck in processing since before cutoff.
// Returns the number of records reaped.
func (s *Store) MarkStaleAnalyses(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Analysis{}).
		Where("status IN ? AND created_at < ?", []string{AnalysisPending, AnalysisProcessing}, cutoff).
		Update("status", AnalysisFailed)
	if res.Error != nil {
		return 0, fmt.Errorf("marking stale analyses: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkStaleResearch fails research runs stuck in a non-terminal status since
// before cutoff. Returns the number of records reaped.
func (s *Store) MarkStaleResearch(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&CompanyResearch{}).
		Where("status IN ? AND created_at < ?", []string{ResearchPending, ResearchSearching, ResearchAnalyzing}, cutoff).
		Update("status", ResearchFailed)
	if res.Error != nil {
		return 0, fmt.Errorf("marking stale research: %w", res.Error)
	}
	return res.RowsAffected, nil
}
