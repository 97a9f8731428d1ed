package handlers

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"

	"listing-registry/internal/auth"
	"listing-registry/internal/services"
)

// LoginMessage is the fixed message wallets sign to authenticate.
const LoginMessage = "Sign this message to authenticate with the listing registry"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authority *services.AuthorityService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authority *services.AuthorityService) *AuthHandler {
	return &AuthHandler{authority: authority}
}

// WalletLogin authenticates a caller by wallet address and signature.
// POST /auth/wallet
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Address) < 32 || len(req.Address) > 44 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}

	pubKey, err := base58.Decode(req.Address)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid public key format"})
		return
	}

	// Wallets usually return base58 signatures; fall back to hex.
	sig, err := base58.Decode(req.Signature)
	if err != nil {
		sig, err = hex.DecodeString(req.Signature)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature format"})
			return
		}
	}

	if !ed25519.Verify(pubKey, []byte(LoginMessage), sig) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	token, err := auth.GenerateToken(req.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"address": req.Address,
	})
}

// Logout handles logout (stateless JWT — client-side only)
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}

// GetMe returns the authenticated caller's address and roles
// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	address, exists := auth.GetAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	roles, err := h.authority.GetRoles(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"roles":   roles,
	})
}
