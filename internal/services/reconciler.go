package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"casa-backend/internal/models"
)

// Reconciler tracks invoices issued to the payment provider and credits the
// ledger once per paid invoice. Pending entries are kept for the process
// lifetime so repeated polling stays idempotent.
type Reconciler struct {
	mu      sync.Mutex
	pending map[string]*models.PendingInvoice

	client   PaymentClient
	ledger   *Ledger
	notifier Notifier
	clock    Clock
	log      *zap.Logger
}

func NewReconciler(client PaymentClient, ledger *Ledger, notifier Notifier, clock Clock, log *zap.Logger) *Reconciler {
	return &Reconciler{
		pending:  make(map[string]*models.PendingInvoice),
		client:   client,
		ledger:   ledger,
		notifier: notifier,
		clock:    clock,
		log:      log,
	}
}

// CreateInvoice registers a deposit request with the payment provider and
// records it as pending. Returns the URL the user pays at.
func (r *Reconciler) CreateInvoice(ctx context.Context, owner int64, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", &models.ValidationError{Reason: "deposit amount must be positive"}
	}

	payload := fmt.Sprintf("%d:%s", owner, amount.String())
	inv, err := r.client.CreateInvoice(ctx, amount, payload)
	if err != nil {
		return "", fmt.Errorf("create invoice for user %d: %w", owner, err)
	}

	r.mu.Lock()
	r.pending[inv.ID] = &models.PendingInvoice{
		InvoiceID: inv.ID,
		Owner:     owner,
		Amount:    amount,
		CreatedAt: r.clock.Now(),
	}
	r.mu.Unlock()

	r.log.Info("invoice created",
		zap.String("invoice", inv.ID),
		zap.Int64("owner", owner),
		zap.String("amount", amount.String()))
	return inv.PayURL, nil
}

// Reconcile polls the provider and credits each newly paid invoice exactly
// once. The paid flag flips before the credit is applied, so a concurrent or
// repeated reconcile can never double-credit. Unknown or malformed entries
// are skipped, never fatal.
func (r *Reconciler) Reconcile(ctx context.Context) {
	r.mu.Lock()
	empty := len(r.pending) == 0
	r.mu.Unlock()
	if empty {
		return
	}

	statuses, err := r.client.ListInvoices(ctx)
	if err != nil {
		r.log.Error("invoice poll failed", zap.Error(err))
		return
	}

	for _, status := range statuses {
		if status.Status != InvoiceStatusPaid {
			continue
		}

		r.mu.Lock()
		inv, known := r.pending[status.ID]
		if !known || inv.Paid {
			r.mu.Unlock()
			continue
		}
		inv.Paid = true
		owner, amount := inv.Owner, inv.Amount
		r.mu.Unlock()

		if err := r.ledger.Deposit(owner, amount, models.CurrencyReal); err != nil {
			r.log.Error("failed to credit paid invoice",
				zap.String("invoice", status.ID),
				zap.Int64("owner", owner),
				zap.Error(err))
			continue
		}
		r.log.Info("invoice credited",
			zap.String("invoice", status.ID),
			zap.Int64("owner", owner),
			zap.String("amount", amount.String()))

		if err := r.notifier.Notify(owner, models.Event{
			Kind:    models.EventDepositConfirmed,
			Payload: map[string]string{"amount": amount.StringFixed(2)},
		}); err != nil {
			r.log.Warn("deposit confirmation dropped",
				zap.Int64("owner", owner), zap.Error(err))
		}
	}
}

// Run polls on a fixed interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}
