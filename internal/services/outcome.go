package services

import (
	"math"
	"math/rand"
	"sync"
)

// OutcomeSource draws game outcomes. The engine depends on this interface so
// tests can force rolls.
type OutcomeSource interface {
	CrashPoint() float64
	BombPosition() int
	DiceRoll() int
}

// crashBands is the house-calibrated crash distribution: cumulative
// probability of crashing at or below each threshold multiplier. Walked by
// explicit index; interpolation always references the previous element by
// position.
var crashBands = []struct {
	threshold float64
	cum       float64
}{
	{1.1, 0.10},
	{1.5, 0.30},
	{3.0, 0.60},
	{5.0, 0.90},
	{25.0, 1.00},
}

const (
	minCrashPoint = 1.01

	ladderCells = 5
	diceFaces   = 6

	DiceParityMultiplier = 2.0
	DiceExactMultiplier  = 6.0
)

// ladderMultipliers holds the payout at each level: 1.0 at level 0, then
// 1.2^k. Survival per level is 4/5, so the per-level expected value
// 0.8 × 1.2 = 0.96 stays below 1.
var ladderMultipliers = func() []float64 {
	m := make([]float64, 10)
	m[0] = 1.0
	for i := 1; i < len(m); i++ {
		m[i] = math.Pow(1.2, float64(i))
	}
	return m
}()

func LadderMultiplier(level int) float64 {
	if level >= len(ladderMultipliers) {
		return ladderMultipliers[len(ladderMultipliers)-1]
	}
	return ladderMultipliers[level]
}

func LadderLevels() int { return len(ladderMultipliers) }

// CrashPointFrom maps a uniform draw in [0,1) to a crash multiplier by
// piecewise-linear interpolation within the band containing r, clamped to
// 1.01 so a session never crashes instantly.
func CrashPointFrom(r float64) float64 {
	crash := 1.0
	for i := 0; i < len(crashBands); i++ {
		band := crashBands[i]
		if r > band.cum {
			continue
		}
		if i == 0 {
			crash = 1.0 + (band.threshold-1.0)*(r/band.cum)
		} else {
			prev := crashBands[i-1]
			frac := (r - prev.cum) / (band.cum - prev.cum)
			crash = prev.threshold + (band.threshold-prev.threshold)*frac
		}
		break
	}
	return math.Max(crash, minCrashPoint)
}

// Outcomes is the production OutcomeSource backed by a seeded PRNG. Safe for
// concurrent use.
type Outcomes struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewOutcomes(seed int64) *Outcomes {
	return &Outcomes{rng: rand.New(rand.NewSource(seed))}
}

func (o *Outcomes) CrashPoint() float64 {
	o.mu.Lock()
	r := o.rng.Float64()
	o.mu.Unlock()
	return CrashPointFrom(r)
}

func (o *Outcomes) BombPosition() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Intn(ladderCells) + 1
}

func (o *Outcomes) DiceRoll() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Intn(diceFaces) + 1
}
