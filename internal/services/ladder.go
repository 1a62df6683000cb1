package services

import (
	"go.uber.org/zap"

	"casa-backend/internal/models"
)

// LadderStep advances a ladder session by one level. A fresh bomb position
// is drawn for every step; picking it ends the session as a loss. Clearing
// the last level auto-settles at the maximum multiplier.
func (e *Engine) LadderStep(actor int64, sessionID string, cell int) (*models.LadderStepResult, error) {
	if cell < 1 || cell > ladderCells {
		return nil, &models.ValidationError{Reason: "cell must be 1..5"}
	}
	s, err := e.lookup(actor, sessionID)
	if err != nil {
		return nil, err
	}
	if s.kind != models.KindLadder {
		return nil, &models.ValidationError{Reason: "not a ladder session"}
	}

	bomb := e.outcomes.BombPosition()

	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return nil, models.ErrSessionNotFound
	}
	if cell == bomb {
		s.resolved = true
		s.status = models.StatusExploded
		level := s.level
		s.mu.Unlock()

		e.remove(s)
		result := &models.LadderStepResult{
			SessionID: s.id,
			Level:     level,
			Exploded:  true,
		}
		e.notifyBestEffort(s.owner, models.Event{Kind: models.EventResolved, Payload: result})
		e.log.Info("ladder session exploded",
			zap.String("session", s.id),
			zap.Int64("owner", s.owner),
			zap.Int("level", level))
		return result, nil
	}

	s.level++
	level := s.level
	if level >= LadderLevels() {
		s.resolved = true
		s.status = models.StatusWon
		s.mu.Unlock()

		e.remove(s)
		multiplier := LadderMultiplier(LadderLevels() - 1)
		payout := s.payout(multiplier)
		result := &models.LadderStepResult{
			SessionID:  s.id,
			Level:      level,
			Multiplier: multiplier,
			Completed:  true,
			Payout:     payout,
		}
		e.settleWin(s, payout, result)
		e.log.Info("ladder session completed",
			zap.String("session", s.id),
			zap.Int64("owner", s.owner),
			zap.Float64("multiplier", multiplier))
		return result, nil
	}
	s.multiplier = LadderMultiplier(level)
	s.mu.Unlock()

	result := &models.LadderStepResult{
		SessionID:  s.id,
		Level:      level,
		Multiplier: LadderMultiplier(level),
	}
	e.notifyBestEffort(actor, models.Event{Kind: models.EventMultiplierUpdate, Payload: result})
	return result, nil
}

// cashOutLadder settles at the current level's multiplier. Level 0 carries a
// fixed 1.0x and no cash-out: a free exit would hand out a risk-free round.
func (e *Engine) cashOutLadder(s *session) (*models.GameResult, error) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return nil, models.ErrSessionNotFound
	}
	if s.level == 0 {
		s.mu.Unlock()
		return nil, models.ErrCashoutLocked
	}
	s.resolved = true
	s.status = models.StatusCashedOut
	level := s.level
	s.mu.Unlock()

	e.remove(s)
	multiplier := LadderMultiplier(level)
	payout := s.payout(multiplier)
	result := &models.GameResult{
		SessionID:  s.id,
		Kind:       models.KindLadder,
		Status:     models.StatusCashedOut,
		Win:        true,
		Multiplier: multiplier,
		Stake:      s.stake,
		Payout:     payout,
	}
	e.settleWin(s, payout, result)
	e.log.Info("ladder session cashed out",
		zap.String("session", s.id),
		zap.Int64("owner", s.owner),
		zap.Int("level", level),
		zap.Float64("multiplier", multiplier))
	return result, nil
}
