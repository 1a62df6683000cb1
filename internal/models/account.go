package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyReal    Currency = "real"
	CurrencyVirtual Currency = "virtual"
)

func (c Currency) Valid() bool {
	return c == CurrencyReal || c == CurrencyVirtual
}

// Account is the per-user ledger entry. Balances never go negative; every
// mutation goes through the Ledger, which serializes access per account.
type Account struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Active   Currency `json:"active_currency"`

	RealBalance    decimal.Decimal `json:"balance"`
	VirtualBalance decimal.Decimal `json:"virtual_balance"`

	// Rolling 24-hour virtual issuance window.
	DailyVirtualIssued decimal.Decimal `json:"daily_virtual_issued"`
	VirtualWindowStart *time.Time      `json:"virtual_window_start,omitempty"`

	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalWon     decimal.Decimal `json:"total_won"`
	GamesPlayed  int64           `json:"games_played"`
}

func NewAccount(userID int64) *Account {
	return &Account{
		UserID:             userID,
		Active:             CurrencyReal,
		RealBalance:        decimal.Zero,
		VirtualBalance:     decimal.Zero,
		DailyVirtualIssued: decimal.Zero,
		TotalWagered:       decimal.Zero,
		TotalWon:           decimal.Zero,
	}
}

func (a *Account) Balance(currency Currency) decimal.Decimal {
	if currency == CurrencyVirtual {
		return a.VirtualBalance
	}
	return a.RealBalance
}

// Stake is an amount plus the balance it is drawn from, validated before any
// game accepts it.
type Stake struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

func (s Stake) Validate(min, max decimal.Decimal) error {
	if !s.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if s.Amount.LessThan(min) {
		return &ValidationError{Reason: "stake below minimum bet of " + min.String()}
	}
	if s.Amount.GreaterThan(max) {
		return &ValidationError{Reason: "stake above maximum bet of " + max.String()}
	}
	return nil
}
