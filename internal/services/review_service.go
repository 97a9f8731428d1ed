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

// ReviewService owns comments and votes. One comment per (project,
// reviewer), one vote slot per (comment, voter); reviews never touch money.
type ReviewService struct {
	db     *gorm.DB
	repo   *repository.Repository
	events *EventService
	mu     sync.Mutex
}

func NewReviewService(db *gorm.DB, repo *repository.Repository, events *EventService) *ReviewService {
	return &ReviewService{db: db, repo: repo, events: events}
}

// SubmitComment creates the caller's comment on an approved project
func (s *ReviewService) SubmitComment(ctx context.Context, caller, projectAddress string, req *models.SubmitCommentRequest) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Score < models.ScoreMin || req.Score > models.ScoreMax {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidScore, req.Score, models.ScoreMin, models.ScoreMax)
	}
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrFieldTooLong)
	}
	if utf8.RuneCountInString(req.Title) > models.TitleMaxLen {
		return nil, fmt.Errorf("%w: title > %d chars", ErrFieldTooLong, models.TitleMaxLen)
	}

	var comment *models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireApproved(tx, projectAddress); err != nil {
			return err
		}

		var existing models.Comment
		err := tx.Where("project_address = ? AND reviewer_address = ?", projectAddress, caller).
			First(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: %s on %s", ErrDuplicateReview, caller, projectAddress)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		comment = &models.Comment{
			ID:              uuid.New(),
			ProjectAddress:  projectAddress,
			ReviewerAddress: caller,
			CommentKey:      models.CommentKeyFor(projectAddress, caller),
			Score:           req.Score,
			Title:           req.Title,
			Body:            req.Body,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		return s.events.Emit(tx, models.EventCommentSubmitted, projectAddress, caller, comment)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Comment submitted on %s by %s (score %d)", projectAddress, caller, req.Score)
	return comment, nil
}

// DeleteComment removes the caller's comment and its votes
func (s *ReviewService) DeleteComment(ctx context.Context, caller, projectAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireApproved(tx, projectAddress); err != nil {
			return err
		}

		var comment models.Comment
		err := tx.Where("project_address = ? AND reviewer_address = ?", projectAddress, caller).
			First(&comment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s on %s", ErrReviewNotFound, caller, projectAddress)
			}
			return err
		}

		if err := tx.Where("comment_key = ?", comment.CommentKey).
			Delete(&models.CommentVote{}).Error; err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}

		return s.events.Emit(tx, models.EventCommentDeleted, projectAddress, caller, models.JSONB{
			"project_address":  projectAddress,
			"reviewer_address": caller,
		})
	})
	if err != nil {
		return err
	}

	log.Printf("Comment on %s by %s deleted", projectAddress, caller)
	return nil
}

// Vote stores or overwrites the caller's vote on a reviewer's comment
func (s *ReviewService) Vote(ctx context.Context, caller, projectAddress, reviewerAddress string, value models.VoteValue) (*models.CommentVote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !value.Valid() {
		return nil, fmt.Errorf("unknown vote value %d", value)
	}

	var vote *models.CommentVote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireApproved(tx, projectAddress); err != nil {
			return err
		}

		var comment models.Comment
		err := tx.Where("project_address = ? AND reviewer_address = ?", projectAddress, reviewerAddress).
			First(&comment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s on %s", ErrReviewNotFound, reviewerAddress, projectAddress)
			}
			return err
		}

		var existing models.CommentVote
		err = tx.Where("comment_key = ? AND voter_address = ?", comment.CommentKey, caller).
			First(&existing).Error
		switch {
		case err == nil:
			existing.Value = value
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update vote: %w", err)
			}
			vote = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote = &models.CommentVote{
				ID:           uuid.New(),
				CommentKey:   comment.CommentKey,
				VoterAddress: caller,
				Value:        value,
			}
			if err := tx.Create(vote).Error; err != nil {
				return fmt.Errorf("failed to create vote: %w", err)
			}
		default:
			return err
		}

		return s.events.Emit(tx, models.EventVoteRecorded, projectAddress, caller, vote)
	})
	if err != nil {
		return nil, err
	}

	return vote, nil
}

// GetComment retrieves a reviewer's comment on a project
func (s *ReviewService) GetComment(ctx context.Context, projectAddress, reviewerAddress string) (*models.Comment, error) {
	comment, err := s.repo.GetComment(ctx, projectAddress, reviewerAddress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s on %s", ErrReviewNotFound, reviewerAddress, projectAddress)
		}
		return nil, err
	}
	return comment, nil
}

// ListComments retrieves comments on a project with pagination
func (s *ReviewService) ListComments(ctx context.Context, projectAddress string, limit, offset int) ([]*models.Comment, int64, error) {
	return s.repo.ListComments(ctx, projectAddress, limit, offset)
}

func (s *ReviewService) requireApproved(tx *gorm.DB, projectAddress string) error {
	var project models.Project
	if err := tx.Where("address = ?", projectAddress).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no record for %s", ErrInvalidStateTransition, projectAddress)
		}
		return err
	}
	if project.Status != models.ProjectStatusApproved {
		return fmt.Errorf("%w: status %s, want %s",
			ErrInvalidStateTransition, project.Status, models.ProjectStatusApproved)
	}
	return nil
}
