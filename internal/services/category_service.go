package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"listing-registry/internal/models"
	"listing-registry/internal/repository"

	"gorm.io/gorm"
)

// CategoryService owns the two flat taxonomies. Indices are append-only and
// monotonically assigned from 0; labels stay unique within a taxonomy.
type CategoryService struct {
	db        *gorm.DB
	repo      *repository.Repository
	authority *AuthorityService
	events    *EventService
	mu        sync.Mutex
}

func NewCategoryService(
	db *gorm.DB,
	repo *repository.Repository,
	authority *AuthorityService,
	events *EventService,
) *CategoryService {
	return &CategoryService{
		db:        db,
		repo:      repo,
		authority: authority,
		events:    events,
	}
}

// Add registers a label at the next free index (Verifier only)
func (s *CategoryService) Add(ctx context.Context, caller string, taxonomy models.Taxonomy, label string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleVerifier); err != nil {
		return nil, err
	}
	if !taxonomy.Valid() {
		return nil, fmt.Errorf("unknown taxonomy %q", taxonomy)
	}
	if label == "" {
		return nil, errors.New("label must not be empty")
	}

	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Category
		if err := tx.Where("taxonomy = ? AND label = ?", taxonomy, label).
			First(&existing).Error; err == nil {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&models.Category{}).
			Where("taxonomy = ?", taxonomy).
			Count(&count).Error; err != nil {
			return err
		}

		category = models.Category{
			Taxonomy: taxonomy,
			Index:    uint64(count),
			Label:    label,
		}
		if err := tx.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to add category: %w", err)
		}

		return s.events.Emit(tx, models.EventCategoryAdded, "", caller, category)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Category %q added to %s taxonomy at index %d", label, taxonomy, category.Index)
	return &category, nil
}

// Rename replaces the label at an index, keeping the index slot (Verifier
// only). oldLabel must name the label currently stored at that index.
func (s *CategoryService) Rename(
	ctx context.Context,
	caller string,
	taxonomy models.Taxonomy,
	index uint64,
	oldLabel, newLabel string,
) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleVerifier); err != nil {
		return nil, err
	}
	if !taxonomy.Valid() {
		return nil, fmt.Errorf("unknown taxonomy %q", taxonomy)
	}
	if newLabel == "" {
		return nil, errors.New("new label must not be empty")
	}

	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.Category
		if err := tx.Where("taxonomy = ? AND label = ?", taxonomy, oldLabel).
			First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %q", ErrUnknownLabel, oldLabel)
			}
			return err
		}

		if err := tx.Where("taxonomy = ? AND slot_index = ?", taxonomy, index).
			First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: index %d is unassigned", ErrIndexMismatch, index)
			}
			return err
		}
		if category.Label != oldLabel {
			return fmt.Errorf("%w: index %d holds %q, not %q",
				ErrIndexMismatch, index, category.Label, oldLabel)
		}

		var dup models.Category
		if err := tx.Where("taxonomy = ? AND label = ?", taxonomy, newLabel).
			First(&dup).Error; err == nil {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, newLabel)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		category.Label = newLabel
		if err := tx.Save(&category).Error; err != nil {
			return fmt.Errorf("failed to rename category: %w", err)
		}

		return s.events.Emit(tx, models.EventCategoryRenamed, "", caller, category)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Category index %d in %s taxonomy renamed %q -> %q", index, taxonomy, oldLabel, newLabel)
	return &category, nil
}

// Validate checks that both indices resolve to currently registered labels.
// validateInTx is the transactional form used by lifecycle operations.
func (s *CategoryService) Validate(ctx context.Context, primaryIndex, secondaryIndex uint64) error {
	return s.validateInTx(s.db.WithContext(ctx), primaryIndex, secondaryIndex)
}

func (s *CategoryService) validateInTx(tx *gorm.DB, primaryIndex, secondaryIndex uint64) error {
	if err := s.resolve(tx, models.TaxonomyPrimary, primaryIndex); err != nil {
		return err
	}
	return s.resolve(tx, models.TaxonomySecondary, secondaryIndex)
}

func (s *CategoryService) resolve(tx *gorm.DB, taxonomy models.Taxonomy, index uint64) error {
	var category models.Category
	if err := tx.Where("taxonomy = ? AND slot_index = ?", taxonomy, index).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s index %d", ErrInvalidCategory, taxonomy, index)
		}
		return err
	}

	// The resolved label must still be registered: a slot whose label was
	// renamed away resolves to the replacement, so this lookup holds the
	// invariant that validate accepts only live labels.
	var live models.Category
	if err := tx.Where("taxonomy = ? AND label = ?", taxonomy, category.Label).
		First(&live).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: label %q no longer registered", ErrInvalidCategory, category.Label)
		}
		return err
	}

	return nil
}

// Get returns one taxonomy slot by index
func (s *CategoryService) Get(ctx context.Context, taxonomy models.Taxonomy, index uint64) (*models.Category, error) {
	if !taxonomy.Valid() {
		return nil, fmt.Errorf("unknown taxonomy %q", taxonomy)
	}
	return s.repo.GetCategory(ctx, taxonomy, index)
}

// List returns all slots of one taxonomy in index order
func (s *CategoryService) List(ctx context.Context, taxonomy models.Taxonomy) ([]*models.Category, error) {
	if !taxonomy.Valid() {
		return nil, fmt.Errorf("unknown taxonomy %q", taxonomy)
	}
	return s.repo.ListCategories(ctx, taxonomy)
}
