package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type GameKind string

const (
	KindCrash  GameKind = "crash"
	KindLadder GameKind = "ladder"
	KindDice   GameKind = "dice"
)

func (k GameKind) Valid() bool {
	switch k {
	case KindCrash, KindLadder, KindDice:
		return true
	}
	return false
}

type SessionStatus string

const (
	StatusRunning   SessionStatus = "running"
	StatusCashedOut SessionStatus = "cashed_out"
	StatusCrashed   SessionStatus = "crashed"
	StatusExploded  SessionStatus = "exploded"
	StatusLost      SessionStatus = "lost"
	StatusWon       SessionStatus = "won"
	StatusAborted   SessionStatus = "aborted"
)

// SessionInfo is the externally visible snapshot of an active session. The
// crash point is never included while the session is running.
type SessionInfo struct {
	ID         string          `json:"id"`
	Owner      int64           `json:"owner"`
	Kind       GameKind        `json:"kind"`
	Stake      decimal.Decimal `json:"stake"`
	Currency   Currency        `json:"currency"`
	Status     SessionStatus   `json:"status"`
	Multiplier float64         `json:"multiplier"`
	Level      int             `json:"level,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// GameResult reports a terminal transition.
type GameResult struct {
	SessionID  string          `json:"session_id"`
	Kind       GameKind        `json:"kind"`
	Status     SessionStatus   `json:"status"`
	Win        bool            `json:"win"`
	Multiplier float64         `json:"multiplier"`
	Stake      decimal.Decimal `json:"stake"`
	Payout     decimal.Decimal `json:"payout"`
}

// DiceMode selects between the two dice bet types.
type DiceMode string

const (
	DiceModeParity DiceMode = "parity"
	DiceModeExact  DiceMode = "exact"
)

type DiceBet struct {
	Mode DiceMode `json:"mode"`
	// Even applies in parity mode.
	Even bool `json:"even"`
	// Face applies in exact mode, 1..6.
	Face int `json:"face"`
}

func (b DiceBet) Validate() error {
	switch b.Mode {
	case DiceModeParity:
		return nil
	case DiceModeExact:
		if b.Face < 1 || b.Face > 6 {
			return &ValidationError{Reason: "dice face must be 1..6"}
		}
		return nil
	}
	return &ValidationError{Reason: "invalid dice bet mode"}
}

type DiceResult struct {
	GameResult
	Roll int `json:"roll"`
}

type LadderStepResult struct {
	SessionID  string  `json:"session_id"`
	Level      int     `json:"level"`
	Multiplier float64 `json:"multiplier"`
	Exploded   bool    `json:"exploded"`
	// Completed is set when the table is exhausted and the session
	// auto-settled at the maximum multiplier.
	Completed bool            `json:"completed"`
	Payout    decimal.Decimal `json:"payout"`
}

// Event is pushed to the transport collaborator. Engine state never depends
// on delivery succeeding.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

const (
	EventSessionStarted   = "session_started"
	EventMultiplierUpdate = "multiplier_update"
	EventResolved         = "resolved"
	EventDepositConfirmed = "deposit_confirmed"
)

// PendingInvoice maps an external payment reference to its owner. The paid
// flag flips exactly once; entries are retained for the process lifetime so
// repeated polling stays idempotent.
type PendingInvoice struct {
	InvoiceID string
	Owner     int64
	Amount    decimal.Decimal
	Paid      bool
	CreatedAt time.Time
}
