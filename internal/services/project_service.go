package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"listing-registry/internal/models"
	"listing-registry/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectService owns the listing state machine:
//
//	none -> PENDING -> APPROVED -> CANCELED
//	            \-> REJECTED -> PENDING (resubmission)
//
// Every transition commits its status change and its escrow mutation in one
// transaction; refunds go out only after that commit.
type ProjectService struct {
	db         *gorm.DB
	repo       *repository.Repository
	categories *CategoryService
	escrow     *EscrowService
	authority  *AuthorityService
	events     *EventService
	mu         sync.Mutex
}

func NewProjectService(
	db *gorm.DB,
	repo *repository.Repository,
	categories *CategoryService,
	escrow *EscrowService,
	authority *AuthorityService,
	events *EventService,
) *ProjectService {
	return &ProjectService{
		db:         db,
		repo:       repo,
		categories: categories,
		escrow:     escrow,
		authority:  authority,
		events:     events,
	}
}

// Submit creates or resubmits a listing for the caller's address. Allowed
// only when no record exists or the previous one was rejected.
func (s *ProjectService) Submit(ctx context.Context, caller string, req *models.SubmitProjectRequest) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if utf8.RuneCountInString(req.Title) > models.TitleMaxLen {
		return nil, fmt.Errorf("%w: title > %d chars", ErrFieldTooLong, models.TitleMaxLen)
	}
	if utf8.RuneCountInString(req.ShortIntro) > models.ShortIntroMaxLen {
		return nil, fmt.Errorf("%w: short intro > %d chars", ErrFieldTooLong, models.ShortIntroMaxLen)
	}

	if err := s.escrow.VerifyDeposit(ctx, req.DepositRef, req.Payment); err != nil {
		return nil, err
	}

	var project *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.categories.validateInTx(tx, req.PrimaryCategoryIndex, req.SecondaryCategoryIndex); err != nil {
			return err
		}

		var existing models.Project
		err := tx.Where("address = ?", caller).First(&existing).Error
		switch {
		case err == nil:
			switch existing.Status {
			case models.ProjectStatusRejected:
				// Resubmission replaces the rejected record.
				if err := tx.Delete(&existing).Error; err != nil {
					return fmt.Errorf("failed to clear rejected record: %w", err)
				}
			case models.ProjectStatusCanceled:
				return fmt.Errorf("%w: canceled listings cannot resubmit", ErrInvalidStateTransition)
			default:
				return fmt.Errorf("%w: status %s", ErrDuplicateSubmission, existing.Status)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := s.escrow.Hold(tx, caller, req.MarginAmount, req.Payment); err != nil {
			return err
		}

		project = &models.Project{
			ID:                     uuid.New(),
			Address:                caller,
			Title:                  req.Title,
			ShortIntro:             req.ShortIntro,
			PrimaryCategoryIndex:   req.PrimaryCategoryIndex,
			SecondaryCategoryIndex: req.SecondaryCategoryIndex,
			Contact:                req.Contact,
			Links:                  req.Links,
			Metadata:               req.Metadata,
			MarginAmount:           req.MarginAmount,
			Status:                 models.ProjectStatusPending,
			CurrentVersion:         0,
			HasPendingProposal:     false,
			CreatedAt:              time.Now(),
		}
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		return s.events.Emit(tx, models.EventProjectSubmitted, caller, caller, project)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Project submitted: %s (%s)", project.Title, caller)
	return project, nil
}

// Approve moves a pending listing to APPROVED (Verifier only). No fund
// movement: the margin stays held.
func (s *ProjectService) Approve(ctx context.Context, caller, address string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleVerifier); err != nil {
		return nil, err
	}

	var project *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = s.requireStatus(tx, address, models.ProjectStatusPending)
		if err != nil {
			return err
		}

		project.Status = models.ProjectStatusApproved
		if err := tx.Save(project).Error; err != nil {
			return fmt.Errorf("failed to approve project: %w", err)
		}

		return s.events.Emit(tx, models.EventProjectApproved, address, caller, project)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Project %s approved by %s", address, caller)
	return project, nil
}

// Reject moves a pending listing to REJECTED and refunds the full margin to
// the submitter (Verifier only).
func (s *ProjectService) Reject(ctx context.Context, caller, address string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleVerifier); err != nil {
		return nil, err
	}

	var project *models.Project
	var refund *models.EscrowTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = s.requireStatus(tx, address, models.ProjectStatusPending)
		if err != nil {
			return err
		}

		refund, err = s.escrow.Release(tx, address, address)
		if err != nil {
			return err
		}

		project.Status = models.ProjectStatusRejected
		if err := tx.Save(project).Error; err != nil {
			return fmt.Errorf("failed to reject project: %w", err)
		}

		return s.events.Emit(tx, models.EventProjectRejected, address, caller, project)
	})
	if err != nil {
		return nil, err
	}

	// Transfer strictly after the state commit.
	s.escrow.Settle(ctx, refund)

	log.Printf("Project %s rejected by %s, refunded %s", address, caller, refund.Amount)
	return project, nil
}

// Cancel moves an approved listing to CANCELED (Verifier only). The margin
// is forfeited, not refunded.
func (s *ProjectService) Cancel(ctx context.Context, caller, address string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleVerifier); err != nil {
		return nil, err
	}

	var project *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = s.requireStatus(tx, address, models.ProjectStatusApproved)
		if err != nil {
			return err
		}
		if project.HasPendingProposal {
			return fmt.Errorf("%w: resolve the pending proposal first", ErrProposalAlreadyPending)
		}

		if err := s.escrow.Forfeit(tx, address); err != nil {
			return err
		}

		project.Status = models.ProjectStatusCanceled
		if err := tx.Save(project).Error; err != nil {
			return fmt.Errorf("failed to cancel project: %w", err)
		}

		return s.events.Emit(tx, models.EventProjectCanceled, address, caller, project)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Project %s canceled by %s", address, caller)
	return project, nil
}

// GetProject retrieves a listing by address
func (s *ProjectService) GetProject(ctx context.Context, address string) (*models.Project, error) {
	return s.repo.GetProjectByAddress(ctx, address)
}

// ListProjects retrieves listings with optional status filter
func (s *ProjectService) ListProjects(
	ctx context.Context,
	status models.ProjectStatus,
	limit, offset int,
) ([]*models.Project, int64, error) {
	return s.repo.ListProjects(ctx, status, limit, offset)
}

func (s *ProjectService) requireStatus(tx *gorm.DB, address string, want models.ProjectStatus) (*models.Project, error) {
	var project models.Project
	if err := tx.Where("address = ?", address).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no record for %s", ErrInvalidStateTransition, address)
		}
		return nil, err
	}
	if project.Status != want {
		return nil, fmt.Errorf("%w: status %s, want %s", ErrInvalidStateTransition, project.Status, want)
	}
	return &project, nil
}
