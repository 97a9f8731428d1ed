package repository

import (
	"context"

	"listing-registry/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetProjectByAddress retrieves a project by its address
func (r *Repository) GetProjectByAddress(ctx context.Context, address string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects retrieves projects with optional status filtering and pagination
func (r *Repository) ListProjects(
	ctx context.Context,
	status models.ProjectStatus,
	limit, offset int,
) ([]*models.Project, int64, error) {
	var projects []*models.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Project{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// GetPendingProposal retrieves the in-flight proposal for a project
func (r *Repository) GetPendingProposal(ctx context.Context, projectAddress string, version uint64) (*models.UpdateProposal, error) {
	var proposal models.UpdateProposal
	err := r.db.WithContext(ctx).
		Where("project_address = ? AND version = ?", projectAddress, version).
		First(&proposal).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// GetCategory retrieves one taxonomy slot by index
func (r *Repository) GetCategory(ctx context.Context, taxonomy models.Taxonomy, index uint64) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Where("taxonomy = ? AND slot_index = ?", taxonomy, index).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories retrieves all slots of a taxonomy in index order
func (r *Repository) ListCategories(ctx context.Context, taxonomy models.Taxonomy) ([]*models.Category, error) {
	var categories []*models.Category
	err := r.db.WithContext(ctx).
		Where("taxonomy = ?", taxonomy).
		Order("slot_index ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// GetComment retrieves a reviewer's comment on a project
func (r *Repository) GetComment(ctx context.Context, projectAddress, reviewerAddress string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Where("project_address = ? AND reviewer_address = ?", projectAddress, reviewerAddress).
		First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments retrieves comments on a project with pagination
func (r *Repository) ListComments(
	ctx context.Context,
	projectAddress string,
	limit, offset int,
) ([]*models.Comment, int64, error) {
	var comments []*models.Comment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("project_address = ?", projectAddress)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

// GetHold retrieves the escrow hold for a project
func (r *Repository) GetHold(ctx context.Context, projectAddress string) (*models.EscrowHold, error) {
	var hold models.EscrowHold
	err := r.db.WithContext(ctx).Where("project_address = ?", projectAddress).First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// ListEvents retrieves domain events newest first with pagination
func (r *Repository) ListEvents(ctx context.Context, limit, offset int) ([]*models.DomainEvent, error) {
	var events []*models.DomainEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
