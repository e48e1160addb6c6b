package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chaindice-backend/internal/chain"
	"chaindice-backend/internal/models"
	"chaindice-backend/internal/services"
)

type AuthHandler struct {
	jwtService *services.JWTService
	keys       chain.KeyStore
}

func NewAuthHandler(jwtService *services.JWTService, keys chain.KeyStore) *AuthHandler {
	return &AuthHandler{jwtService: jwtService, keys: keys}
}

// CreateSession issues a session token for a registered wallet. A wallet
// without a registered signer could never settle a losing bet, so it is
// rejected up front rather than at roll time.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req struct {
		Wallet string `json:"wallet" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := models.ValidateWalletAddress(req.Wallet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.keys.Signer(req.Wallet); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Wallet has no registered signer"})
		return
	}

	token, err := h.jwtService.GenerateToken(req.Wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"wallet":  req.Wallet,
	})
}
