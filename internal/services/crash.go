package services

import (
	"time"

	"go.uber.org/zap"

	"casa-backend/internal/models"
)

// runCrash drives a crash session: the multiplier grows linearly with
// elapsed wall-clock time until it reaches the hidden crash point. The
// driver never holds the session lock across a tick wait or a notification.
func (e *Engine) runCrash(s *session) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := e.clock.Now()

			s.mu.Lock()
			if s.resolved {
				s.mu.Unlock()
				return
			}
			elapsed := now.Sub(s.startedAt)
			duration := time.Duration(s.crashPoint * float64(e.crashScale))
			m := 1.0 + (s.crashPoint-1.0)*(float64(elapsed)/float64(duration))
			crashed := m >= s.crashPoint
			if !crashed {
				s.multiplier = m
				s.lastUpdate = now
			}
			s.mu.Unlock()

			if crashed {
				e.autoCrash(s)
				return
			}

			if !e.notifyCritical(s.owner, models.Event{
				Kind:    models.EventMultiplierUpdate,
				Payload: s.info(),
			}) {
				e.forceTerminate(s)
				return
			}
		}
	}
}

// autoCrash is the losing terminal transition. Exactly one of autoCrash and
// cashOutCrash settles a session; the claim decides the race.
func (e *Engine) autoCrash(s *session) {
	if !s.claim(models.StatusCrashed) {
		return
	}
	e.remove(s)

	result := &models.GameResult{
		SessionID:  s.id,
		Kind:       models.KindCrash,
		Status:     models.StatusCrashed,
		Win:        false,
		Multiplier: s.crashPoint,
		Stake:      s.stake,
	}
	e.notifyBestEffort(s.owner, models.Event{Kind: models.EventResolved, Payload: result})
	e.log.Info("crash session crashed",
		zap.String("session", s.id),
		zap.Int64("owner", s.owner),
		zap.Float64("crash_point", s.crashPoint))
}

func (e *Engine) cashOutCrash(s *session) (*models.GameResult, error) {
	// Capture the multiplier and the resolution flag in one critical
	// section: the payout is fixed at the moment the claim succeeds.
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return nil, models.ErrSessionNotFound
	}
	s.resolved = true
	s.status = models.StatusCashedOut
	multiplier := s.multiplier
	s.mu.Unlock()

	close(s.stop)
	e.remove(s)

	payout := s.payout(multiplier)
	result := &models.GameResult{
		SessionID:  s.id,
		Kind:       models.KindCrash,
		Status:     models.StatusCashedOut,
		Win:        true,
		Multiplier: multiplier,
		Stake:      s.stake,
		Payout:     payout,
	}
	e.settleWin(s, payout, result)
	e.log.Info("crash session cashed out",
		zap.String("session", s.id),
		zap.Int64("owner", s.owner),
		zap.Float64("multiplier", multiplier))
	return result, nil
}
