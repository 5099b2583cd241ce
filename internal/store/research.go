package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CreateResearch inserts a company research record and fills in its id.
func (s *Store) CreateResearch(ctx context.Context, r *CompanyResearch) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("creating research: %w", err)
	}
	return nil
}

// ListProjectResearch returns a project's research runs, newest first.
func (s *Store) ListProjectResearch(ctx context.Context, projectID uint) ([]CompanyResearch, error) {
	var research []CompanyResearch
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&research).Error
	if err != nil {
		return nil, fmt.Errorf("listing research: %w", err)
	}
	return research, nil
}

// GetResearch returns the research run scoped to its project.
func (s *Store) GetResearch(ctx context.Context, id, projectID uint) (*CompanyResearch, error) {
	var r CompanyResearch
	err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: research %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting research: %w", err)
	}
	return &r, nil
}

// SetResearchAnalyzing records the gather stage's output: the model-supplied
// company name, the raw gather payload for audit, and the analyzing status.
func (s *Store) SetResearchAnalyzing(ctx context.Context, id uint, companyName, rawResults string) error {
	err := s.db.WithContext(ctx).
		Model(&CompanyResearch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             ResearchAnalyzing,
			"company_name":       companyName,
			"raw_search_results": rawResults,
		}).Error
	if err != nil {
		return fmt.Errorf("setting research %d analyzing: %w", id, err)
	}
	return nil
}

// ResearchResults holds the synthesis stage's output persisted on completion.
type ResearchResults struct {
	OverallSentiment string
	PositiveCount    int
	NegativeCount    int
	NeutralCount     int
	Summary          string
	KeyStrengths     string
	KeyWeaknesses    string
	Recommendations  string
}

// CompleteResearch transitions the research run to completed with all
// synthesis fields and the completion timestamp set.
func (s *Store) CompleteResearch(ctx context.Context, id uint, results ResearchResults) error {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Model(&CompanyResearch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            ResearchCompleted,
			"overall_sentiment": results.OverallSentiment,
			"positive_count":    results.PositiveCount,
			"negative_count":    results.NegativeCount,
			"neutral_count":     results.NeutralCount,
			"summary":           results.Summary,
			"key_strengths":     results.KeyStrengths,
			"key_weaknesses":    results.KeyWeaknesses,
			"recommendations":   results.Recommendations,
			"completed_at":      &now,
		}).Error
	if err != nil {
		return fmt.Errorf("completing research %d: %w", id, err)
	}
	return nil
}

// FailResearch transitions the research run to failed. Findings persisted by
// a successful gather stage remain queryable.
func (s *Store) FailResearch(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&CompanyResearch{}).
		Where("id = ?", id).
		Update("status", ResearchFailed).Error
	if err != nil {
		return fmt.Errorf("failing research %d: %w", id, err)
	}
	return nil
}

// DeleteResearch removes a research run and its findings.
func (s *Store) DeleteResearch(ctx context.Context, id, projectID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("research_id = ? AND project_id = ?", id, projectID).
			Delete(&ResearchFinding{}).Error; err != nil {
			return fmt.Errorf("deleting findings: %w", err)
		}
		res := tx.Where("id = ? AND project_id = ?", id, projectID).
			Delete(&CompanyResearch{})
		if res.Error != nil {
			return fmt.Errorf("deleting research: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: research %d", ErrNotFound, id)
		}
		return nil
	})
}

// CreateFindings batch-inserts research findings.
func (s *Store) CreateFindings(ctx context.Context, findings []ResearchFinding) error {
	if len(findings) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&findings).Error; err != nil {
		return fmt.Errorf("creating findings: %w", err)
	}
	return nil
}

// ListFindings returns a research run's findings, newest first.
func (s *Store) ListFindings(ctx context.Context, researchID uint) ([]ResearchFinding, error) {
	var findings []ResearchFinding
	err := s.db.WithContext(ctx).
		Where("research_id = ?", researchID).
		Order("created_at DESC").
		Find(&findings).Error
	if err != nil {
		return nil, fmt.Errorf("listing findings: %w", err)
	}
	return findings, nil
}

// CountFindings returns the number of findings persisted for a research run.
func (s *Store) CountFindings(ctx context.Context, researchID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&ResearchFinding{}).
		Where("research_id = ?", researchID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting findings: %w", err)
	}
	return n, nil
}
