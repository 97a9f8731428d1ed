package handlers

import (
	"errors"
	"net/http"

	"listing-registry/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, services.ErrReviewNotFound),
		errors.Is(err, services.ErrNoPendingProposal):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateSubmission),
		errors.Is(err, services.ErrDuplicateReview),
		errors.Is(err, services.ErrDuplicateLabel),
		errors.Is(err, services.ErrProposalAlreadyPending):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrIndexMismatch),
		errors.Is(err, services.ErrInsufficientAvailableBalance),
		errors.Is(err, services.ErrInsufficientMargin),
		errors.Is(err, services.ErrAmountMismatch):
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
