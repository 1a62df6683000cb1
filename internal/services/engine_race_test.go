package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"casa-backend/internal/models"
)

type raceStore struct{}

func (raceStore) Load(context.Context) (map[int64]models.Account, error) { return nil, nil }
func (raceStore) Save(context.Context, map[int64]models.Account) error  { return nil }

type raceClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *raceClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *raceClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type raceOutcomes struct{}

func (raceOutcomes) CrashPoint() float64 { return 2.0 }
func (raceOutcomes) BombPosition() int   { return 5 }
func (raceOutcomes) DiceRoll() int       { return 1 }

// TestCrashCashOutRaceSettlesOnce hammers CashOut from several goroutines
// while the driver's auto-crash tick fires against the same session. Exactly
// one of the two may settle: at most one win, and the final balance must be
// consistent with that single settlement.
func TestCrashCashOutRaceSettlesOnce(t *testing.T) {
	clock := &raceClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	ledger, err := NewLedger(raceStore{}, decimal.NewFromInt(100), clock, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	engine := NewEngine(ledger, raceOutcomes{}, NopNotifier{}, clock,
		decimal.RequireFromString("0.1"), decimal.NewFromInt(1000), zap.NewNop())
	engine.tick = 2 * time.Millisecond

	const rounds = 25
	const contenders = 8

	for round := 0; round < rounds; round++ {
		userID := int64(9000 + round)
		if err := ledger.Deposit(userID, decimal.NewFromInt(100), models.CurrencyReal); err != nil {
			t.Fatalf("Round %d: failed to fund: %v", round, err)
		}

		info, err := engine.Start(userID, models.KindCrash, models.Stake{
			Amount:   decimal.NewFromInt(10),
			Currency: models.CurrencyReal,
		})
		if err != nil {
			t.Fatalf("Round %d: failed to start: %v", round, err)
		}

		// Push elapsed time past the crash point so the next driver tick
		// auto-crashes, racing the cash-out goroutines below.
		clock.Advance(time.Minute)

		var wins int32
		var wg sync.WaitGroup
		for g := 0; g < contenders; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := engine.CashOut(userID, info.ID)
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
					if result.Payout.LessThan(decimal.NewFromInt(10)) {
						t.Errorf("Round %d: payout below stake: %s", round, result.Payout)
					}
				case errors.Is(err, models.ErrSessionNotFound):
					// Lost the race to the crash or another cash-out.
				default:
					t.Errorf("Round %d: unexpected cash-out error: %v", round, err)
				}
			}()
		}
		wg.Wait()

		// The losing path resolves on the driver goroutine; wait for it to
		// release the slot before inspecting the round's outcome.
		deadline := time.Now().Add(2 * time.Second)
		for {
			if _, active := engine.ActiveSession(userID); !active {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("Round %d: session never resolved", round)
			}
			time.Sleep(time.Millisecond)
		}

		if wins > 1 {
			t.Fatalf("Round %d: session settled %d times", round, wins)
		}

		balance := ledger.GetBalance(userID, models.CurrencyReal)
		won := ledger.Account(userID).TotalWon
		if wins == 0 {
			if !balance.Equal(decimal.NewFromInt(90)) {
				t.Fatalf("Round %d: crashed session must pay nothing, balance %s", round, balance)
			}
			if !won.IsZero() {
				t.Fatalf("Round %d: crashed session recorded a win of %s", round, won)
			}
		} else {
			if balance.LessThan(decimal.NewFromInt(100)) {
				t.Fatalf("Round %d: cashed-out session must return at least the stake, balance %s", round, balance)
			}
			if balance.GreaterThan(decimal.NewFromInt(110)) {
				t.Fatalf("Round %d: payout above the crash point, balance %s", round, balance)
			}
		}
	}
}
