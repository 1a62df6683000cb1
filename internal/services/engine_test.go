package services_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"casa-backend/internal/models"
	"casa-backend/internal/services"
)

// fakeOutcomes returns fixed draws so game resolutions are deterministic.
type fakeOutcomes struct {
	crash float64
	bomb  int
	roll  int
}

func (f *fakeOutcomes) CrashPoint() float64 { return f.crash }
func (f *fakeOutcomes) BombPosition() int   { return f.bomb }
func (f *fakeOutcomes) DiceRoll() int       { return f.roll }

// recordingNotifier captures delivered events and can be told to fail a
// specific event kind.
type recordingNotifier struct {
	mu       sync.Mutex
	events   []models.Event
	failKind string
}

func (n *recordingNotifier) Notify(_ int64, event models.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failKind != "" && event.Kind == n.failKind {
		return fmt.Errorf("connection gone")
	}
	n.events = append(n.events, event)
	return nil
}

func newTestEngine(t *testing.T) (*services.Engine, *services.Ledger, *fakeOutcomes, *recordingNotifier, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	ledger, err := services.NewLedger(newMemStore(), decimal.NewFromInt(100), clock, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	outcomes := &fakeOutcomes{crash: 5.0, bomb: 5, roll: 4}
	notifier := &recordingNotifier{}
	engine := services.NewEngine(ledger, outcomes, notifier, clock,
		decimal.RequireFromString("0.1"), decimal.NewFromInt(1000), zap.NewNop())
	return engine, ledger, outcomes, notifier, clock
}

func fund(t *testing.T, ledger *services.Ledger, userID int64, amount int64) {
	t.Helper()
	if err := ledger.Deposit(userID, decimal.NewFromInt(amount), models.CurrencyReal); err != nil {
		t.Fatalf("Failed to fund user %d: %v", userID, err)
	}
}

func stake(amount int64) models.Stake {
	return models.Stake{Amount: decimal.NewFromInt(amount), Currency: models.CurrencyReal}
}

func TestStartRejectsSecondSession(t *testing.T) {
	engine, ledger, _, _, _ := newTestEngine(t)
	userID := int64(100)
	fund(t, ledger, userID, 100)

	if _, err := engine.Start(userID, models.KindCrash, stake(10)); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// A second session is rejected across all game kinds.
	if _, err := engine.Start(userID, models.KindDice, stake(10)); !errors.Is(err, models.ErrSessionActive) {
		t.Errorf("Second session should be rejected, got %v", err)
	}
	if _, err := engine.Start(userID, models.KindLadder, stake(10)); !errors.Is(err, models.ErrSessionActive) {
		t.Errorf("Second session should be rejected, got %v", err)
	}
}

func TestStartInsufficientFundsFreesSlot(t *testing.T) {
	engine, ledger, _, _, _ := newTestEngine(t)
	userID := int64(101)

	if _, err := engine.Start(userID, models.KindDice, stake(10)); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("Start without funds should fail, got %v", err)
	}
	if _, ok := engine.ActiveSession(userID); ok {
		t.Fatal("Failed start must not leave a session behind")
	}

	fund(t, ledger, userID, 100)
	if _, err := engine.Start(userID, models.KindDice, stake(10)); err != nil {
		t.Errorf("Start after funding should succeed, got %v", err)
	}
}

func TestStartValidatesStake(t *testing.T) {
	engine, ledger, _, _, _ := newTestEngine(t)
	userID := int64(102)
	fund(t, ledger, userID, 5000)

	var validation *models.ValidationError
	if _, err := engine.Start(userID, models.KindDice, stake(2000)); !errors.As(err, &validation) {
		t.Errorf("Stake above the maximum should fail validation, got %v", err)
	}
	if _, err := engine.Start(userID, models.KindDice, models.Stake{
		Amount:   decimal.RequireFromString("0.05"),
		Currency: models.CurrencyReal,
	}); !errors.As(err, &validation) {
		t.Errorf("Stake below the minimum should fail validation, got %v", err)
	}
	if _, err := engine.Start(userID, models.GameKind("roulette"), stake(10)); !errors.As(err, &validation) {
		t.Errorf("Unknown game kind should fail validation, got %v", err)
	}
}

func TestCashOutRejectsNonOwner(t *testing.T) {
	engine, ledger, _, _, _ := newTestEngine(t)
	owner := int64(103)
	fund(t, ledger, owner, 100)

	info, err := engine.Start(owner, models.KindCrash, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	if _, err := engine.CashOut(int64(999), info.ID); !errors.Is(err, models.ErrNotOwner) {
		t.Errorf("Cash-out by a non-owner should be rejected, got %v", err)
	}
}

func TestCrashCashOutSettlesOnce(t *testing.T) {
	engine, ledger, _, notifier, _ := newTestEngine(t)
	userID := int64(104)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindCrash, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// The fake clock never advances, so the multiplier holds at 1.0.
	result, err := engine.CashOut(userID, info.ID)
	if err != nil {
		t.Fatalf("Failed to cash out: %v", err)
	}
	if !result.Win {
		t.Error("Cash-out should be a win")
	}
	if !result.Payout.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Payout at 1.0x should return the stake, got %s", result.Payout)
	}

	balance := ledger.GetBalance(userID, models.CurrencyReal)
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Balance should be back to 100, got %s", balance)
	}

	if _, err := engine.CashOut(userID, info.ID); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Second cash-out should find no session, got %v", err)
	}
	if _, ok := engine.ActiveSession(userID); ok {
		t.Error("Settled session must release the owner's slot")
	}

	notifier.mu.Lock()
	var started, resolved bool
	for _, e := range notifier.events {
		switch e.Kind {
		case models.EventSessionStarted:
			started = true
		case models.EventResolved:
			resolved = true
		}
	}
	notifier.mu.Unlock()
	if !started || !resolved {
		t.Errorf("Expected start and resolution events, got started=%v resolved=%v", started, resolved)
	}
}

func TestLadderStepAndCashOut(t *testing.T) {
	engine, ledger, outcomes, _, _ := newTestEngine(t)
	userID := int64(105)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindLadder, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	outcomes.bomb = 5
	step, err := engine.LadderStep(userID, info.ID, 1)
	if err != nil {
		t.Fatalf("Failed to step: %v", err)
	}
	if step.Exploded {
		t.Fatal("Safe cell should not explode")
	}
	if step.Level != 1 {
		t.Errorf("Level should be 1, got %d", step.Level)
	}

	result, err := engine.CashOut(userID, info.ID)
	if err != nil {
		t.Fatalf("Failed to cash out: %v", err)
	}
	if !result.Payout.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Payout at 1.2x should be 12, got %s", result.Payout)
	}

	balance := ledger.GetBalance(userID, models.CurrencyReal)
	if !balance.Equal(decimal.NewFromInt(102)) {
		t.Errorf("Balance should be 102, got %s", balance)
	}
}

func TestLadderCashOutLockedAtLevelZero(t *testing.T) {
	engine, ledger, _, _, _ := newTestEngine(t)
	userID := int64(106)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindLadder, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	if _, err := engine.CashOut(userID, info.ID); !errors.Is(err, models.ErrCashoutLocked) {
		t.Fatalf("Cash-out at level 0 should be locked, got %v", err)
	}

	// The rejection must not consume the session.
	if _, ok := engine.ActiveSession(userID); !ok {
		t.Error("Session should still be active after a locked cash-out")
	}
}

func TestLadderExplosion(t *testing.T) {
	engine, ledger, outcomes, _, _ := newTestEngine(t)
	userID := int64(107)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindLadder, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	outcomes.bomb = 3
	step, err := engine.LadderStep(userID, info.ID, 3)
	if err != nil {
		t.Fatalf("Failed to step: %v", err)
	}
	if !step.Exploded {
		t.Fatal("Picking the bomb cell should explode")
	}

	balance := ledger.GetBalance(userID, models.CurrencyReal)
	if !balance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Stake should be lost, balance 90, got %s", balance)
	}
	if _, ok := engine.ActiveSession(userID); ok {
		t.Error("Exploded session must release the owner's slot")
	}
}

func TestLadderCompletionAutoSettles(t *testing.T) {
	engine, ledger, outcomes, _, _ := newTestEngine(t)
	userID := int64(108)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindLadder, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	outcomes.bomb = 5
	var last *models.LadderStepResult
	for i := 0; i < services.LadderLevels(); i++ {
		last, err = engine.LadderStep(userID, info.ID, 1)
		if err != nil {
			t.Fatalf("Failed to step at level %d: %v", i, err)
		}
	}

	if !last.Completed {
		t.Fatal("Clearing every level should auto-settle the session")
	}
	top := services.LadderMultiplier(services.LadderLevels() - 1)
	if last.Multiplier != top {
		t.Errorf("Completion should pay the top multiplier %v, got %v", top, last.Multiplier)
	}

	want := decimal.NewFromInt(90).Add(decimal.NewFromInt(10).Mul(decimal.NewFromFloat(top)))
	balance := ledger.GetBalance(userID, models.CurrencyReal)
	if !balance.Equal(want) {
		t.Errorf("Balance should be %s, got %s", want, balance)
	}
	if _, ok := engine.ActiveSession(userID); ok {
		t.Error("Completed session must release the owner's slot")
	}
}

func TestDiceExactWin(t *testing.T) {
	engine, ledger, outcomes, _, _ := newTestEngine(t)
	userID := int64(109)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindDice, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	outcomes.roll = 4
	result, err := engine.PlayDice(userID, info.ID, models.DiceBet{Mode: models.DiceModeExact, Face: 4})
	if err != nil {
		t.Fatalf("Failed to play dice: %v", err)
	}
	if !result.Win || result.Roll != 4 {
		t.Fatalf("Exact guess of the roll should win, got win=%v roll=%d", result.Win, result.Roll)
	}
	if !result.Payout.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Exact win pays 6x, want 60, got %s", result.Payout)
	}

	acct := ledger.Account(userID)
	if !acct.RealBalance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Balance should be 150, got %s", acct.RealBalance)
	}
	if !acct.TotalWagered.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Total wagered should be 10, got %s", acct.TotalWagered)
	}
	if acct.GamesPlayed != 1 {
		t.Errorf("Games played should be 1, got %d", acct.GamesPlayed)
	}
}

func TestDiceParityLoss(t *testing.T) {
	engine, ledger, outcomes, _, _ := newTestEngine(t)
	userID := int64(110)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindDice, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	outcomes.roll = 3
	result, err := engine.PlayDice(userID, info.ID, models.DiceBet{Mode: models.DiceModeParity, Even: true})
	if err != nil {
		t.Fatalf("Failed to play dice: %v", err)
	}
	if result.Win {
		t.Fatal("Betting even against an odd roll should lose")
	}

	balance := ledger.GetBalance(userID, models.CurrencyReal)
	if !balance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Stake should be lost, balance 90, got %s", balance)
	}
	if _, ok := engine.ActiveSession(userID); ok {
		t.Error("Resolved session must release the owner's slot")
	}
}

func TestOperationsCheckGameKind(t *testing.T) {
	engine, ledger, _, _, _ := newTestEngine(t)
	userID := int64(111)
	fund(t, ledger, userID, 100)

	info, err := engine.Start(userID, models.KindDice, stake(10))
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	var validation *models.ValidationError
	if _, err := engine.CashOut(userID, info.ID); !errors.As(err, &validation) {
		t.Errorf("Cash-out on a dice session should be rejected, got %v", err)
	}
	if _, err := engine.LadderStep(userID, info.ID, 1); !errors.As(err, &validation) {
		t.Errorf("Ladder step on a dice session should be rejected, got %v", err)
	}
}

func TestSweepStaleReleasesSlot(t *testing.T) {
	engine, ledger, _, _, clock := newTestEngine(t)
	userID := int64(112)
	fund(t, ledger, userID, 100)

	if _, err := engine.Start(userID, models.KindCrash, stake(10)); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	clock.Advance(11 * time.Minute)
	engine.SweepStale(10 * time.Minute)

	if _, ok := engine.ActiveSession(userID); ok {
		t.Fatal("Stale session should be terminated")
	}
	// No payout on a forced termination.
	balance := ledger.GetBalance(userID, models.CurrencyReal)
	if !balance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Balance should be 90, got %s", balance)
	}
}

func TestCrashTerminatesWhenDeliveryFails(t *testing.T) {
	engine, ledger, _, notifier, _ := newTestEngine(t)
	userID := int64(113)
	fund(t, ledger, userID, 100)

	notifier.mu.Lock()
	notifier.failKind = models.EventMultiplierUpdate
	notifier.mu.Unlock()

	if _, err := engine.Start(userID, models.KindCrash, stake(10)); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// The first tick retries delivery and then abandons the session.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := engine.ActiveSession(userID); !ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("Session should be terminated after delivery keeps failing")
}
