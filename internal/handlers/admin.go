package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/config"
	"casa-backend/internal/models"
	"casa-backend/internal/services"
)

type AdminHandler struct {
	ledger *services.Ledger
	cfg    *config.Config
}

func NewAdminHandler(ledger *services.Ledger, cfg *config.Config) *AdminHandler {
	return &AdminHandler{ledger: ledger, cfg: cfg}
}

// RequireAdmin gates the admin surface on the configured allowlist.
func (h *AdminHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.cfg.IsAdmin(c.GetInt64("user_id")) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Credit deposits to an arbitrary account by username. It calls only the
// ledger's deposit path, so virtual credits stay subject to the daily cap.
func (h *AdminHandler) Credit(c *gin.Context) {
	var req models.AdminCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	userID, ok := h.ledger.FindByUsername(req.Username)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": models.ErrUserNotFound.Error()})
		return
	}

	if err := h.ledger.Deposit(userID, req.Amount, req.Currency); err != nil {
		var limit *models.LimitExceededError
		var validation *models.ValidationError
		switch {
		case errors.As(err, &limit):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": limit.Error()})
		case errors.As(err, &validation):
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Reason})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"user_id":     userID,
		"new_balance": h.ledger.GetBalance(userID, req.Currency),
	})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "totals": h.ledger.TotalsSnapshot()})
}
