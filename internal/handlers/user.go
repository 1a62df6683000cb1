package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/models"
	"casa-backend/internal/services"
)

type UserHandler struct {
	ledger *services.Ledger
	engine *services.Engine
}

func NewUserHandler(ledger *services.Ledger, engine *services.Engine) *UserHandler {
	return &UserHandler{ledger: ledger, engine: engine}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt64("user_id")

	acct := h.ledger.Account(userID)
	session, _ := h.engine.ActiveSession(userID)

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":              acct.UserID,
			"username":        acct.Username,
			"active_currency": acct.Active,
		},
		"balance": gin.H{
			"real":    acct.RealBalance,
			"virtual": acct.VirtualBalance,
		},
		"stats": gin.H{
			"total_wagered": acct.TotalWagered,
			"total_won":     acct.TotalWon,
			"games_played":  acct.GamesPlayed,
		},
		"active_session": session,
	})
}

func (h *UserHandler) ToggleCurrency(c *gin.Context) {
	userID := c.GetInt64("user_id")

	active := h.ledger.ToggleCurrency(userID)
	c.JSON(http.StatusOK, gin.H{"success": true, "active_currency": active})
}

// Bonus is the self-service virtual top-up. It goes through the same
// daily-cap path as every other virtual deposit.
func (h *UserHandler) Bonus(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.BonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if err := h.ledger.Deposit(userID, req.Amount, models.CurrencyVirtual); err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"new_balance": h.ledger.GetBalance(userID, models.CurrencyVirtual),
	})
}
