package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSessionActive     = errors.New("a game session is already active")
	ErrSessionNotFound   = errors.New("game session not found")
	ErrNotOwner          = errors.New("session belongs to another user")
	ErrCashoutLocked     = errors.New("cash-out is not available at level 0")
	ErrUserNotFound      = errors.New("user not found")
)

// ValidationError covers bad input (stake amount, bet choice). Recoverable
// by the caller; never a system fault.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// LimitExceededError is returned when a virtual deposit would exceed the
// daily issuance cap. RetryAfter is the time until the window resets.
type LimitExceededError struct {
	Limit      string
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	d := e.RetryAfter.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	return fmt.Sprintf("daily virtual deposit limit of %s exceeded, retry in %dh %dm", e.Limit, h, m)
}
