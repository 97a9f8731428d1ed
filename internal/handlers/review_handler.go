package handlers

import (
	"net/http"

	"listing-registry/internal/auth"
	"listing-registry/internal/models"
	"listing-registry/internal/services"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// SubmitComment creates the caller's comment on a project
// POST /api/projects/:address/comments
func (h *ReviewHandler) SubmitComment(c *gin.Context) {
	caller, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.SubmitCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.reviewService.SubmitComment(c.Request.Context(), caller, c.Param("address"), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// DeleteComment removes the caller's comment
// DELETE /api/projects/:address/comments
func (h *ReviewHandler) DeleteComment(c *gin.Context) {
	caller, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.reviewService.DeleteComment(c.Request.Context(), caller, c.Param("address")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

// ListComments lists comments on a project
// GET /api/projects/:address/comments
func (h *ReviewHandler) ListComments(c *gin.Context) {
	limit, offset := pagination(c)

	comments, total, err := h.reviewService.ListComments(c.Request.Context(), c.Param("address"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"total":    total,
	})
}

// Vote stores or overwrites the caller's vote on a reviewer's comment
// POST /api/projects/:address/comments/:reviewer/vote
func (h *ReviewHandler) Vote(c *gin.Context) {
	caller, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vote, err := h.reviewService.Vote(
		c.Request.Context(),
		caller,
		c.Param("address"),
		c.Param("reviewer"),
		req.Value,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, vote)
}
