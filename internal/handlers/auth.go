package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/models"
	"casa-backend/internal/services"
)

type AuthHandler struct {
	jwtService *services.JWTService
	ledger     *services.Ledger
}

func NewAuthHandler(jwtService *services.JWTService, ledger *services.Ledger) *AuthHandler {
	return &AuthHandler{jwtService: jwtService, ledger: ledger}
}

// Login issues a token for a claimed user identity. Operator authentication
// beyond the admin allowlist is out of scope for the engine; the surface
// exists so the API is usable end to end.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	token, err := h.jwtService.GenerateToken(req.UserID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	h.ledger.SetUsername(req.UserID, req.Username)

	c.JSON(http.StatusOK, gin.H{"token": token})
}
