package services

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"casa-backend/internal/models"
)

// PlayDice resolves a dice session in one shot: the roll and the settlement
// happen atomically with the bet-type choice.
func (e *Engine) PlayDice(actor int64, sessionID string, bet models.DiceBet) (*models.DiceResult, error) {
	if err := bet.Validate(); err != nil {
		return nil, err
	}
	s, err := e.lookup(actor, sessionID)
	if err != nil {
		return nil, err
	}
	if s.kind != models.KindDice {
		return nil, &models.ValidationError{Reason: "not a dice session"}
	}

	roll := e.outcomes.DiceRoll()

	var win bool
	var multiplier float64
	switch bet.Mode {
	case models.DiceModeParity:
		win = (roll%2 == 0) == bet.Even
		multiplier = DiceParityMultiplier
	case models.DiceModeExact:
		win = roll == bet.Face
		multiplier = DiceExactMultiplier
	}

	status := models.StatusLost
	if win {
		status = models.StatusWon
	}
	if !s.claim(status) {
		return nil, models.ErrSessionNotFound
	}
	e.remove(s)

	result := &models.DiceResult{
		GameResult: models.GameResult{
			SessionID: s.id,
			Kind:      models.KindDice,
			Status:    status,
			Win:       win,
			Stake:     s.stake,
			Payout:    decimal.Zero,
		},
		Roll: roll,
	}
	if win {
		result.Multiplier = multiplier
		result.Payout = s.payout(multiplier)
		e.settleWin(s, result.Payout, result)
	} else {
		e.notifyBestEffort(s.owner, models.Event{Kind: models.EventResolved, Payload: result})
	}
	e.log.Info("dice session resolved",
		zap.String("session", s.id),
		zap.Int64("owner", s.owner),
		zap.Int("roll", roll),
		zap.Bool("win", win))
	return result, nil
}
