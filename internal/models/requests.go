package models

import "github.com/shopspring/decimal"

type BetRequest struct {
	Kind     GameKind        `json:"kind" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency Currency        `json:"currency"`
}

type CashoutRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type LadderStepRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Cell      int    `json:"cell" binding:"required,min=1,max=5"`
}

type DicePlayRequest struct {
	SessionID string   `json:"session_id" binding:"required"`
	Mode      DiceMode `json:"mode" binding:"required"`
	Even      bool     `json:"even"`
	Face      int      `json:"face"`
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type BonusRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type AdminCreditRequest struct {
	Username string          `json:"username" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency Currency        `json:"currency" binding:"required"`
}

type LoginRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Username string `json:"username"`
}
