package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/models"
	"casa-backend/internal/services"
)

type GameHandler struct {
	engine *services.Engine
	ledger *services.Ledger
}

func NewGameHandler(engine *services.Engine, ledger *services.Ledger) *GameHandler {
	return &GameHandler{engine: engine, ledger: ledger}
}

func (h *GameHandler) PlaceBet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	session, err := h.engine.Start(userID, req.Kind, models.Stake{
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
}

func (h *GameHandler) Cashout(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.CashOut(userID, req.SessionID)
	if err != nil {
		gameError(c, err)
		return
	}

	acct := h.ledger.Account(userID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
		"balance": gin.H{
			"real":    acct.RealBalance,
			"virtual": acct.VirtualBalance,
		},
	})
}

func (h *GameHandler) GetActiveSession(c *gin.Context) {
	userID := c.GetInt64("user_id")

	session, ok := h.engine.ActiveSession(userID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "session": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
}

func (h *GameHandler) LadderStep(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.LadderStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.LadderStep(userID, req.SessionID, req.Cell)
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) LadderCashout(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.CashOut(userID, req.SessionID)
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *GameHandler) PlayDice(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.DicePlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.engine.PlayDice(userID, req.SessionID, models.DiceBet{
		Mode: req.Mode,
		Even: req.Even,
		Face: req.Face,
	})
	if err != nil {
		gameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func gameError(c *gin.Context, err error) {
	var validation *models.ValidationError
	var limit *models.LimitExceededError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Reason})
	case errors.As(err, &limit):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       limit.Error(),
			"retry_after": limit.RetryAfter.Seconds(),
		})
	case errors.Is(err, models.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSessionActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrCashoutLocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
