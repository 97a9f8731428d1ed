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

// ProposalService manages the one in-flight amendment an approved listing
// may have. Accepting folds the bundled margin into the listing's required
// margin and advances the version; rejecting refunds it and leaves the
// version untouched.
//
// Proposal operations and lifecycle transitions mutate the same project and
// hold rows, so this service serializes on the project service's lock: a
// cancel can never interleave with a propose on the same listing.
type ProposalService struct {
	db         *gorm.DB
	repo       *repository.Repository
	categories *CategoryService
	escrow     *EscrowService
	authority  *AuthorityService
	events     *EventService
	mu         *sync.Mutex
}

func NewProposalService(
	db *gorm.DB,
	repo *repository.Repository,
	categories *CategoryService,
	escrow *EscrowService,
	authority *AuthorityService,
	events *EventService,
	projects *ProjectService,
) *ProposalService {
	return &ProposalService{
		db:         db,
		repo:       repo,
		categories: categories,
		escrow:     escrow,
		authority:  authority,
		events:     events,
		mu:         &projects.mu,
	}
}

// Propose stores an amendment for the caller's approved listing. Only the
// submitter may propose, and only while no other proposal is pending.
func (s *ProposalService) Propose(ctx context.Context, caller string, req *models.ProposeUpdateRequest) (*models.UpdateProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if utf8.RuneCountInString(req.ShortIntro) > models.ShortIntroMaxLen {
		return nil, fmt.Errorf("%w: short intro > %d chars", ErrFieldTooLong, models.ShortIntroMaxLen)
	}
	if req.Payment.IsNegative() {
		return nil, fmt.Errorf("%w: negative payment", ErrAmountMismatch)
	}

	if req.Payment.IsPositive() {
		if err := s.escrow.VerifyDeposit(ctx, req.DepositRef, req.Payment); err != nil {
			return nil, err
		}
	}

	var proposal *models.UpdateProposal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Where("address = ?", caller).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no record for %s", ErrInvalidStateTransition, caller)
			}
			return err
		}
		if project.Status != models.ProjectStatusApproved {
			return fmt.Errorf("%w: status %s, want %s",
				ErrInvalidStateTransition, project.Status, models.ProjectStatusApproved)
		}
		if project.HasPendingProposal {
			return fmt.Errorf("%w: project %s", ErrProposalAlreadyPending, caller)
		}

		if err := s.categories.validateInTx(tx, req.PrimaryCategoryIndex, req.SecondaryCategoryIndex); err != nil {
			return err
		}

		// TopUp enforces existing margin + payment >= minimum.
		if _, err := s.escrow.TopUp(tx, caller, req.Payment); err != nil {
			return err
		}

		proposal = &models.UpdateProposal{
			ID:                     uuid.New(),
			ProjectAddress:         caller,
			Version:                project.CurrentVersion + 1,
			PrimaryCategoryIndex:   req.PrimaryCategoryIndex,
			SecondaryCategoryIndex: req.SecondaryCategoryIndex,
			ShortIntro:             req.ShortIntro,
			Links:                  req.Links,
			Metadata:               req.Metadata,
			AddedMargin:            req.Payment,
			CreatedAt:              time.Now(),
		}
		if err := tx.Create(proposal).Error; err != nil {
			return fmt.Errorf("failed to store proposal: %w", err)
		}

		project.HasPendingProposal = true
		if err := tx.Save(&project).Error; err != nil {
			return fmt.Errorf("failed to flag pending proposal: %w", err)
		}

		return s.events.Emit(tx, models.EventProposalSubmitted, caller, caller, proposal)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Proposal v%d submitted for project %s", proposal.Version, caller)
	return proposal, nil
}

// Accept folds the proposal into the listing (Verifier only). The bundled
// margin is already held, so this is an accounting relabel, not a transfer.
func (s *ProposalService) Accept(ctx context.Context, caller, address string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleVerifier); err != nil {
		return nil, err
	}

	var project *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, proposal, err := s.loadPending(tx, address)
		if err != nil {
			return err
		}

		p.PrimaryCategoryIndex = proposal.PrimaryCategoryIndex
		p.SecondaryCategoryIndex = proposal.SecondaryCategoryIndex
		p.ShortIntro = proposal.ShortIntro
		p.Links = proposal.Links
		p.Metadata = proposal.Metadata
		p.MarginAmount = p.MarginAmount.Add(proposal.AddedMargin)
		p.CurrentVersion = proposal.Version
		p.HasPendingProposal = false
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("failed to apply proposal: %w", err)
		}

		if err := tx.Delete(proposal).Error; err != nil {
			return fmt.Errorf("failed to discard proposal: %w", err)
		}

		project = p
		return s.events.Emit(tx, models.EventProposalResolved, address, caller, models.JSONB{
			"accepted": true,
			"version":  proposal.Version,
			"project":  projectState(p),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Proposal for project %s accepted by %s (now v%d)", address, caller, project.CurrentVersion)
	return project, nil
}

// Reject discards the proposal and refunds its bundled margin (Verifier
// only). The listing's version does not advance.
func (s *ProposalService) Reject(ctx context.Context, caller, address string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authority.RequireRole(ctx, caller, models.RoleVerifier); err != nil {
		return nil, err
	}

	var project *models.Project
	var refund *models.EscrowTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, proposal, err := s.loadPending(tx, address)
		if err != nil {
			return err
		}

		if proposal.AddedMargin.IsPositive() {
			refund, err = s.escrow.PartialRelease(tx, address, address, proposal.AddedMargin)
			if err != nil {
				return err
			}
		}

		p.HasPendingProposal = false
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("failed to clear pending proposal: %w", err)
		}

		if err := tx.Delete(proposal).Error; err != nil {
			return fmt.Errorf("failed to discard proposal: %w", err)
		}

		project = p
		return s.events.Emit(tx, models.EventProposalResolved, address, caller, models.JSONB{
			"accepted": false,
			"version":  proposal.Version,
			"project":  projectState(p),
		})
	})
	if err != nil {
		return nil, err
	}

	s.escrow.Settle(ctx, refund)

	log.Printf("Proposal for project %s rejected by %s", address, caller)
	return project, nil
}

// GetPending retrieves the in-flight proposal for a project
func (s *ProposalService) GetPending(ctx context.Context, address string) (*models.UpdateProposal, error) {
	project, err := s.repo.GetProjectByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if !project.HasPendingProposal {
		return nil, fmt.Errorf("%w: project %s", ErrNoPendingProposal, address)
	}
	return s.repo.GetPendingProposal(ctx, address, project.CurrentVersion+1)
}

func (s *ProposalService) loadPending(tx *gorm.DB, address string) (*models.Project, *models.UpdateProposal, error) {
	var project models.Project
	if err := tx.Where("address = ?", address).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: no record for %s", ErrInvalidStateTransition, address)
		}
		return nil, nil, err
	}
	if !project.HasPendingProposal {
		return nil, nil, fmt.Errorf("%w: project %s", ErrNoPendingProposal, address)
	}

	var proposal models.UpdateProposal
	if err := tx.Where("project_address = ? AND version = ?", address, project.CurrentVersion+1).
		First(&proposal).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load pending proposal: %w", err)
	}

	return &project, &proposal, nil
}

func projectState(p *models.Project) map[string]interface{} {
	return map[string]interface{}{
		"address":         p.Address,
		"status":          string(p.Status),
		"current_version": p.CurrentVersion,
		"margin_amount":   p.MarginAmount.String(),
	}
}
