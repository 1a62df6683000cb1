package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/models"
	"casa-backend/internal/services"
)

type PaymentHandler struct {
	reconciler *services.Reconciler
}

func NewPaymentHandler(reconciler *services.Reconciler) *PaymentHandler {
	return &PaymentHandler{reconciler: reconciler}
}

// Deposit creates an invoice with the payment provider. The balance is
// credited by the reconciler once the provider reports the invoice paid.
func (h *PaymentHandler) Deposit(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payURL, err := h.reconciler.CreateInvoice(c.Request.Context(), userID, req.Amount)
	if err != nil {
		var validation *models.ValidationError
		if errors.As(err, &validation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Reason})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pay_url": payURL})
}
