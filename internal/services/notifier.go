package services

import (
	"time"

	"go.uber.org/zap"

	"casa-backend/internal/models"
)

// Notifier delivers events to the transport collaborator. A nil error means
// delivered or nothing to deliver; an error means delivery failed for a
// reachable recipient.
type Notifier interface {
	Notify(userID int64, event models.Event) error
}

// notifyCritical retries a bounded number of times. A false return means the
// update could not be delivered and the session should be abandoned.
func (e *Engine) notifyCritical(userID int64, event models.Event) bool {
	var err error
	for attempt := 1; attempt <= deliveryRetries; attempt++ {
		if err = e.notifier.Notify(userID, event); err == nil {
			return true
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	e.log.Error("delivery failed after retries",
		zap.Int64("user", userID),
		zap.String("event", event.Kind),
		zap.Error(err))
	return false
}

func (e *Engine) notifyBestEffort(userID int64, event models.Event) {
	if err := e.notifier.Notify(userID, event); err != nil {
		e.log.Warn("notification dropped",
			zap.Int64("user", userID),
			zap.String("event", event.Kind),
			zap.Error(err))
	}
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(int64, models.Event) error { return nil }
