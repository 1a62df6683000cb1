package services

import "time"

// Clock abstracts wall-clock reads so timing behavior (virtual issuance
// windows, crash multiplier progression) is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }
