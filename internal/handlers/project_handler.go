package handlers

import (
	"context"
	"net/http"
	"strconv"

	"listing-registry/internal/auth"
	"listing-registry/internal/models"
	"listing-registry/internal/services"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService  *services.ProjectService
	proposalService *services.ProposalService
}

func NewProjectHandler(
	projectService *services.ProjectService,
	proposalService *services.ProposalService,
) *ProjectHandler {
	return &ProjectHandler{
		projectService:  projectService,
		proposalService: proposalService,
	}
}

// SubmitProject submits a new listing for the caller's address
// POST /api/projects
func (h *ProjectHandler) SubmitProject(c *gin.Context) {
	address, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.SubmitProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projectService.Submit(c.Request.Context(), address, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProject retrieves a listing by address
// GET /api/projects/:address
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// ListProjects lists listings with optional status filter
// GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	limit, offset := pagination(c)
	status := models.ProjectStatus(c.Query("status"))

	projects, total, err := h.projectService.ListProjects(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"total":    total,
	})
}

// ApproveProject approves a pending listing (Verifier only)
// POST /api/verifier/projects/:address/approve
func (h *ProjectHandler) ApproveProject(c *gin.Context) {
	h.transition(c, h.projectService.Approve)
}

// RejectProject rejects a pending listing and refunds its margin (Verifier only)
// POST /api/verifier/projects/:address/reject
func (h *ProjectHandler) RejectProject(c *gin.Context) {
	h.transition(c, h.projectService.Reject)
}

// CancelProject cancels an approved listing (Verifier only)
// POST /api/verifier/projects/:address/cancel
func (h *ProjectHandler) CancelProject(c *gin.Context) {
	h.transition(c, h.projectService.Cancel)
}

// ProposeUpdate submits an amendment for the caller's approved listing
// POST /api/projects/proposals
func (h *ProjectHandler) ProposeUpdate(c *gin.Context) {
	address, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.ProposeUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposalService.Propose(c.Request.Context(), address, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// GetPendingProposal retrieves the in-flight proposal for a listing
// GET /api/projects/:address/proposal
func (h *ProjectHandler) GetPendingProposal(c *gin.Context) {
	proposal, err := h.proposalService.GetPending(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// AcceptProposal folds the pending proposal into the listing (Verifier only)
// POST /api/verifier/projects/:address/proposal/accept
func (h *ProjectHandler) AcceptProposal(c *gin.Context) {
	h.transition(c, h.proposalService.Accept)
}

// RejectProposal discards the pending proposal and refunds its margin (Verifier only)
// POST /api/verifier/projects/:address/proposal/reject
func (h *ProjectHandler) RejectProposal(c *gin.Context) {
	h.transition(c, h.proposalService.Reject)
}

func (h *ProjectHandler) transition(
	c *gin.Context,
	fn func(ctx context.Context, caller, address string) (*models.Project, error),
) {
	caller, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	project, err := fn(c.Request.Context(), caller, c.Param("address"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// pagination parses limit/offset query parameters with sane bounds
func pagination(c *gin.Context) (int, int) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
