// Package store provides gorm-backed persistence for productflow entities.
//
// Every query is scoped by (id, project id) or (id, owner id) pairs so a
// record is only ever visible to the project owner. Rows are mutated only by
// the pipeline instance that owns their id; no locking beyond the single-row
// update is required.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound indicates a record does not exist within the given owner or
// project scope.
var ErrNotFound = errors.New("record not found")

// Store provides persistence for all productflow entities.
type Store struct {
	db *gorm.DB
}

// Open opens the sqlite database at dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&Project{},
		&DataFile{},
		&Analysis{},
		&FeatureProposal{},
		&Task{},
		&CompanyResearch{},
		&ResearchFinding{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// ─── Projects ───

// CreateProject inserts a project and fills in its id.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// ListProjects returns the user's projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, userID uint) ([]Project, error) {
	var projects []Project
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// GetProject returns the project if it exists and belongs to the user.
func (s *Store) GetProject(ctx context.Context, id, userID uint) (*Project, error) {
	var p Project
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: project %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return &p, nil
}

// ProjectUpdate holds optional project field changes.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *string
}

// UpdateProject applies the non-nil fields of update to the user's project.
func (s *Store) UpdateProject(ctx context.Context, id, userID uint, update ProjectUpdate) error {
	values := map[string]interface{}{}
	if update.Name != nil {
		values["name"] = *update.Name
	}
	if update.Description != nil {
		values["description"] = *update.Description
	}
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if len(values) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("updating project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: project %d", ErrNotFound, id)
	}
	return nil
}

// DeleteProject removes a project and all child entities in dependency
// order: tasks, proposals, analyses, files, findings, research, project.
func (s *Store) DeleteProject(ctx context.Context, id, userID uint) error {
	if _, err := s.GetProject(ctx, id, userID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, del := range []error{
			tx.Where("project_id = ?", id).Delete(&Task{}).Error,
			tx.Where("project_id = ?", id).Delete(&FeatureProposal{}).Error,
			tx.Where("project_id = ?", id).Delete(&Analysis{}).Error,
			tx.Where("project_id = ?", id).Delete(&DataFile{}).Error,
			tx.Where("project_id = ?", id).Delete(&ResearchFinding{}).Error,
			tx.Where("project_id = ?", id).Delete(&CompanyResearch{}).Error,
			tx.Where("id = ? AND user_id = ?", id, userID).Delete(&Project{}).Error,
		} {
			if del != nil {
				return fmt.Errorf("deleting project %d: %w", id, del)
			}
		}
		return nil
	})
}

// ─── Data files ───

// CreateDataFile inserts a data file record and fills in its id.
func (s *Store) CreateDataFile(ctx context.Context, f *DataFile) error {
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("creating data file: %w", err)
	}
	return nil
}

// GetDataFile returns the file scoped to its project.
func (s *Store) GetDataFile(ctx context.Context, id, projectID uint) (*DataFile, error) {
	var f DataFile
	err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: data file %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting data file: %w", err)
	}
	return &f, nil
}

// ListProjectFiles returns a project's files, newest first.
func (s *Store) ListProjectFiles(ctx context.Context, projectID uint) ([]DataFile, error) {
	var files []DataFile
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// DeleteDataFile removes a file scoped to its project.
func (s *Store) DeleteDataFile(ctx context.Context, id, projectID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		Delete(&DataFile{})
	if res.Error != nil {
		return fmt.Errorf("deleting data file: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: data file %d", ErrNotFound, id)
	}
	return nil
}
