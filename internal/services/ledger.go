package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"casa-backend/internal/models"
	"casa-backend/internal/store"
)

const virtualWindow = 24 * time.Hour

// Ledger owns every account. Operations on one account serialize on that
// account's lock; operations on different accounts do not block each other.
// The registry lock is held only for lookup and create, never across a
// balance mutation or store I/O.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[int64]*accountEntry

	store      store.Store
	dailyLimit decimal.Decimal
	clock      Clock
	log        *zap.Logger
}

type accountEntry struct {
	mu   sync.Mutex
	acct models.Account
}

func NewLedger(st store.Store, dailyLimit decimal.Decimal, clock Clock, log *zap.Logger) (*Ledger, error) {
	loaded, err := st.Load(context.Background())
	if err != nil {
		return nil, err
	}

	accounts := make(map[int64]*accountEntry, len(loaded))
	for id, acct := range loaded {
		accounts[id] = &accountEntry{acct: acct}
	}

	l := &Ledger{
		accounts:   accounts,
		store:      st,
		dailyLimit: dailyLimit,
		clock:      clock,
		log:        log,
	}
	l.log.Info("ledger loaded", zap.Int("accounts", len(accounts)))
	return l, nil
}

func (l *Ledger) entry(userID int64) *accountEntry {
	l.mu.RLock()
	e, ok := l.accounts[userID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.accounts[userID]; ok {
		return e
	}
	e = &accountEntry{acct: *models.NewAccount(userID)}
	l.accounts[userID] = e
	return e
}

func (l *Ledger) GetBalance(userID int64, currency models.Currency) decimal.Decimal {
	e := l.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Balance(currency)
}

func (l *Ledger) Account(userID int64) models.Account {
	e := l.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct
}

// Deposit credits the selected balance. Virtual deposits are subject to the
// rolling daily issuance cap; real deposits are uncapped.
func (l *Ledger) Deposit(userID int64, amount decimal.Decimal, currency models.Currency) error {
	if !amount.IsPositive() {
		return &models.ValidationError{Reason: "deposit amount must be positive"}
	}
	if !currency.Valid() {
		return models.ErrInvalidCurrency
	}

	e := l.entry(userID)
	e.mu.Lock()
	if currency == models.CurrencyVirtual {
		now := l.clock.Now()
		if start := e.acct.VirtualWindowStart; start != nil {
			if now.Sub(*start) >= virtualWindow {
				e.acct.DailyVirtualIssued = decimal.Zero
				e.acct.VirtualWindowStart = &now
			}
		} else {
			e.acct.VirtualWindowStart = &now
		}

		if e.acct.DailyVirtualIssued.Add(amount).GreaterThan(l.dailyLimit) {
			retryAfter := virtualWindow - now.Sub(*e.acct.VirtualWindowStart)
			limit := l.dailyLimit
			e.mu.Unlock()
			return &models.LimitExceededError{Limit: limit.String(), RetryAfter: retryAfter}
		}
		e.acct.DailyVirtualIssued = e.acct.DailyVirtualIssued.Add(amount)
		e.acct.VirtualBalance = e.acct.VirtualBalance.Add(amount)
	} else {
		e.acct.RealBalance = e.acct.RealBalance.Add(amount)
	}
	e.mu.Unlock()

	l.persist()
	return nil
}

// Credit adds winnings to the selected balance. Unlike Deposit it does not
// count toward the virtual issuance cap: payouts are returning the player's
// own stake plus the win, not issuing new funds.
func (l *Ledger) Credit(userID int64, amount decimal.Decimal, currency models.Currency) error {
	if !amount.IsPositive() {
		return &models.ValidationError{Reason: "credit amount must be positive"}
	}
	if !currency.Valid() {
		return models.ErrInvalidCurrency
	}

	e := l.entry(userID)
	e.mu.Lock()
	if currency == models.CurrencyVirtual {
		e.acct.VirtualBalance = e.acct.VirtualBalance.Add(amount)
	} else {
		e.acct.RealBalance = e.acct.RealBalance.Add(amount)
	}
	e.mu.Unlock()

	l.persist()
	return nil
}

// Withdraw atomically debits the balance. Insufficient funds is a normal
// decline, reported as false with no error and no state change.
func (l *Ledger) Withdraw(userID int64, amount decimal.Decimal, currency models.Currency) (bool, error) {
	if !amount.IsPositive() {
		return false, &models.ValidationError{Reason: "withdraw amount must be positive"}
	}
	if !currency.Valid() {
		return false, models.ErrInvalidCurrency
	}

	e := l.entry(userID)
	e.mu.Lock()
	if currency == models.CurrencyVirtual {
		if e.acct.VirtualBalance.LessThan(amount) {
			e.mu.Unlock()
			return false, nil
		}
		e.acct.VirtualBalance = e.acct.VirtualBalance.Sub(amount)
	} else {
		if e.acct.RealBalance.LessThan(amount) {
			e.mu.Unlock()
			return false, nil
		}
		e.acct.RealBalance = e.acct.RealBalance.Sub(amount)
	}
	e.mu.Unlock()

	l.persist()
	return true, nil
}

func (l *Ledger) RecordBet(userID int64, amount decimal.Decimal) {
	e := l.entry(userID)
	e.mu.Lock()
	e.acct.TotalWagered = e.acct.TotalWagered.Add(amount)
	e.acct.GamesPlayed++
	e.mu.Unlock()
	l.persist()
}

func (l *Ledger) RecordWin(userID int64, amount decimal.Decimal) {
	e := l.entry(userID)
	e.mu.Lock()
	e.acct.TotalWon = e.acct.TotalWon.Add(amount)
	e.mu.Unlock()
	l.persist()
}

func (l *Ledger) ToggleCurrency(userID int64) models.Currency {
	e := l.entry(userID)
	e.mu.Lock()
	if e.acct.Active == models.CurrencyVirtual {
		e.acct.Active = models.CurrencyReal
	} else {
		e.acct.Active = models.CurrencyVirtual
	}
	active := e.acct.Active
	e.mu.Unlock()
	l.persist()
	return active
}

func (l *Ledger) ActiveCurrency(userID int64) models.Currency {
	e := l.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Active
}

// SetUsername records the last seen username so admin operations can address
// accounts by @name.
func (l *Ledger) SetUsername(userID int64, username string) {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	if username == "" {
		return
	}
	e := l.entry(userID)
	e.mu.Lock()
	changed := e.acct.Username != username
	e.acct.Username = username
	e.mu.Unlock()
	if changed {
		l.persist()
	}
}

func (l *Ledger) FindByUsername(username string) (int64, bool) {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	l.mu.RLock()
	defer l.mu.RUnlock()
	for id, e := range l.accounts {
		e.mu.Lock()
		match := e.acct.Username == username
		e.mu.Unlock()
		if match {
			return id, true
		}
	}
	return 0, false
}

// Totals aggregates casino-wide figures for the admin surface.
type Totals struct {
	Users          int             `json:"users"`
	RealBalance    decimal.Decimal `json:"real_balance"`
	VirtualBalance decimal.Decimal `json:"virtual_balance"`
	TotalWagered   decimal.Decimal `json:"total_wagered"`
	TotalWon       decimal.Decimal `json:"total_won"`
}

func (l *Ledger) TotalsSnapshot() Totals {
	t := Totals{
		RealBalance:    decimal.Zero,
		VirtualBalance: decimal.Zero,
		TotalWagered:   decimal.Zero,
		TotalWon:       decimal.Zero,
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.accounts {
		e.mu.Lock()
		t.Users++
		t.RealBalance = t.RealBalance.Add(e.acct.RealBalance)
		t.VirtualBalance = t.VirtualBalance.Add(e.acct.VirtualBalance)
		t.TotalWagered = t.TotalWagered.Add(e.acct.TotalWagered)
		t.TotalWon = t.TotalWon.Add(e.acct.TotalWon)
		e.mu.Unlock()
	}
	return t
}

// persist snapshots every account and hands the map to the store. Entry
// locks are taken only while copying; store I/O runs unlocked. A failed
// save is logged, never surfaced to the caller: the in-memory ledger stays
// authoritative.
func (l *Ledger) persist() {
	l.mu.RLock()
	snapshot := make(map[int64]models.Account, len(l.accounts))
	for id, e := range l.accounts {
		e.mu.Lock()
		snapshot[id] = e.acct
		e.mu.Unlock()
	}
	l.mu.RUnlock()

	if err := l.store.Save(context.Background(), snapshot); err != nil {
		l.log.Error("failed to persist accounts", zap.Error(err))
	}
}
