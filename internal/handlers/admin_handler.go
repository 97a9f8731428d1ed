package handlers

import (
	"net/http"

	"listing-registry/internal/auth"
	"listing-registry/internal/models"
	"listing-registry/internal/repository"
	"listing-registry/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	authority *services.AuthorityService
	escrow    *services.EscrowService
	repo      *repository.Repository
}

func NewAdminHandler(
	authority *services.AuthorityService,
	escrow *services.EscrowService,
	repo *repository.Repository,
) *AdminHandler {
	return &AdminHandler{
		authority: authority,
		escrow:    escrow,
		repo:      repo,
	}
}

// AdminMiddleware restricts a route group to admin-role callers
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return h.roleMiddleware(models.RoleAdmin)
}

// VerifierMiddleware restricts a route group to verifier-role callers
func (h *AdminHandler) VerifierMiddleware() gin.HandlerFunc {
	return h.roleMiddleware(models.RoleVerifier)
}

func (h *AdminHandler) roleMiddleware(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		address, exists := auth.GetAddress(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		if !h.authority.HasRole(c.Request.Context(), address, role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GrantRole assigns a role to an address (Admin only)
// POST /api/admin/roles/grant
func (h *AdminHandler) GrantRole(c *gin.Context) {
	caller, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, err := h.authority.GrantRole(c.Request.Context(), caller, req.Address, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// RevokeRole removes a role from an address (Admin only)
// POST /api/admin/roles/revoke
func (h *AdminHandler) RevokeRole(c *gin.Context) {
	caller, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authority.RevokeRole(c.Request.Context(), caller, req.Address, req.Role); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "role revoked"})
}

// GetRoles lists the roles held by an address
// GET /api/admin/roles/:address
func (h *AdminHandler) GetRoles(c *gin.Context) {
	roles, err := h.authority.GetRoles(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": c.Param("address"),
		"roles":   roles,
	})
}

// Withdraw sends unencumbered funds out of the pool (Admin only)
// POST /api/admin/treasury/withdraw
func (h *AdminHandler) Withdraw(c *gin.Context) {
	caller, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.escrow.Withdraw(c.Request.Context(), caller, req.Recipient, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetTreasury reports the pool's unencumbered balance
// GET /api/admin/treasury
func (h *AdminHandler) GetTreasury(c *gin.Context) {
	available, err := h.escrow.AvailableBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": available})
}

// ListEvents returns the domain event stream, newest first
// GET /api/admin/events
func (h *AdminHandler) ListEvents(c *gin.Context) {
	limit, offset := pagination(c)

	events, err := h.repo.ListEvents(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEscrowHold reports the margin currently held against a project
// GET /api/admin/escrow/:address
func (h *AdminHandler) GetEscrowHold(c *gin.Context) {
	hold, err := h.repo.GetHold(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no hold for this project"})
		return
	}

	c.JSON(http.StatusOK, hold)
}

// ListEscrowTransactions returns escrow movements for a project
// GET /api/admin/escrow/:address/transactions
func (h *AdminHandler) ListEscrowTransactions(c *gin.Context) {
	limit, offset := pagination(c)

	records, err := h.escrow.ListTransactions(c.Request.Context(), c.Param("address"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": records})
}
