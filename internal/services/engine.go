package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"casa-backend/internal/models"
)

const (
	defaultTick       = 500 * time.Millisecond
	defaultCrashScale = 3 * time.Second
	deliveryRetries   = 3
)

// Engine owns every active session. At most one session per user across all
// game kinds: starting a second game is rejected, never silently replaced.
type Engine struct {
	mu      sync.Mutex
	byID    map[string]*session
	byOwner map[int64]*session

	ledger   *Ledger
	outcomes OutcomeSource
	notifier Notifier
	clock    Clock
	log      *zap.Logger

	minBet decimal.Decimal
	maxBet decimal.Decimal

	tick       time.Duration
	crashScale time.Duration
}

type session struct {
	mu        sync.Mutex
	id        string
	owner     int64
	kind      models.GameKind
	stake     decimal.Decimal
	currency  models.Currency
	createdAt time.Time

	resolved bool
	status   models.SessionStatus

	// Crash. crashPoint is fixed at creation and never exposed while the
	// session is running.
	crashPoint float64
	multiplier float64
	startedAt  time.Time
	lastUpdate time.Time
	stop       chan struct{}

	// Ladder.
	level int
}

func NewEngine(ledger *Ledger, outcomes OutcomeSource, notifier Notifier, clock Clock, minBet, maxBet decimal.Decimal, log *zap.Logger) *Engine {
	return &Engine{
		byID:       make(map[string]*session),
		byOwner:    make(map[int64]*session),
		ledger:     ledger,
		outcomes:   outcomes,
		notifier:   notifier,
		clock:      clock,
		log:        log,
		minBet:     minBet,
		maxBet:     maxBet,
		tick:       defaultTick,
		crashScale: defaultCrashScale,
	}
}

// Start withdraws the stake and creates a session in one protocol step: the
// owner's registry slot is reserved before the withdrawal so a concurrent
// Start cannot slip in, and released again if the withdrawal declines.
func (e *Engine) Start(owner int64, kind models.GameKind, stake models.Stake) (*models.SessionInfo, error) {
	if !kind.Valid() {
		return nil, &models.ValidationError{Reason: "unknown game kind"}
	}
	if stake.Currency == "" {
		stake.Currency = e.ledger.ActiveCurrency(owner)
	}
	if err := stake.Validate(e.minBet, e.maxBet); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	s := &session{
		id:         uuid.New().String(),
		owner:      owner,
		kind:       kind,
		stake:      stake.Amount,
		currency:   stake.Currency,
		createdAt:  now,
		status:     models.StatusRunning,
		multiplier: 1.0,
		startedAt:  now,
		lastUpdate: now,
	}

	e.mu.Lock()
	if _, active := e.byOwner[owner]; active {
		e.mu.Unlock()
		return nil, models.ErrSessionActive
	}
	e.byOwner[owner] = s
	e.byID[s.id] = s
	e.mu.Unlock()

	ok, err := e.ledger.Withdraw(owner, stake.Amount, stake.Currency)
	if err != nil || !ok {
		e.remove(s)
		if err != nil {
			return nil, err
		}
		return nil, models.ErrInsufficientFunds
	}
	e.ledger.RecordBet(owner, stake.Amount)

	switch kind {
	case models.KindCrash:
		s.crashPoint = e.outcomes.CrashPoint()
		s.stop = make(chan struct{})
		go e.runCrash(s)
	case models.KindLadder, models.KindDice:
		// Driven by discrete owner choices, no background driver.
	}

	info := s.info()
	e.notifyBestEffort(owner, models.Event{Kind: models.EventSessionStarted, Payload: info})
	e.log.Info("session started",
		zap.String("session", s.id),
		zap.Int64("owner", owner),
		zap.String("kind", string(kind)),
		zap.String("stake", stake.Amount.String()))
	return info, nil
}

// CashOut resolves a running session in the owner's favor. For crash it pays
// the multiplier at the moment of the call and wins any race against the
// auto-crash tick; for ladder it pays the current level's multiplier.
func (e *Engine) CashOut(actor int64, sessionID string) (*models.GameResult, error) {
	s, err := e.lookup(actor, sessionID)
	if err != nil {
		return nil, err
	}

	switch s.kind {
	case models.KindCrash:
		return e.cashOutCrash(s)
	case models.KindLadder:
		return e.cashOutLadder(s)
	default:
		return nil, &models.ValidationError{Reason: "dice sessions resolve on the bet choice, not cash-out"}
	}
}

// ActiveSession reports the caller's running session, if any.
func (e *Engine) ActiveSession(owner int64) (*models.SessionInfo, bool) {
	e.mu.Lock()
	s, ok := e.byOwner[owner]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.info(), true
}

// SweepStale force-terminates crash sessions whose driver stopped delivering
// updates, releasing the owner's registry slot.
func (e *Engine) SweepStale(maxAge time.Duration) {
	now := e.clock.Now()

	e.mu.Lock()
	var stale []*session
	for _, s := range e.byID {
		if s.kind != models.KindCrash {
			continue
		}
		s.mu.Lock()
		if !s.resolved && now.Sub(s.lastUpdate) > maxAge {
			stale = append(stale, s)
		}
		s.mu.Unlock()
	}
	e.mu.Unlock()

	for _, s := range stale {
		e.forceTerminate(s)
	}
}

func (e *Engine) lookup(actor int64, sessionID string) (*session, error) {
	e.mu.Lock()
	s, ok := e.byID[sessionID]
	e.mu.Unlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if s.owner != actor {
		return nil, models.ErrNotOwner
	}
	return s, nil
}

func (e *Engine) remove(s *session) {
	e.mu.Lock()
	delete(e.byID, s.id)
	if cur, ok := e.byOwner[s.owner]; ok && cur == s {
		delete(e.byOwner, s.owner)
	}
	e.mu.Unlock()
}

// claim is the exclusive commit point for a terminal transition. Exactly one
// caller wins; everyone else sees the session as already resolved.
func (s *session) claim(status models.SessionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return false
	}
	s.resolved = true
	s.status = status
	return true
}

func (s *session) info() *models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.SessionInfo{
		ID:         s.id,
		Owner:      s.owner,
		Kind:       s.kind,
		Stake:      s.stake,
		Currency:   s.currency,
		Status:     s.status,
		Multiplier: s.multiplier,
		Level:      s.level,
		CreatedAt:  s.createdAt,
	}
}

// settleWin follows the fixed settlement order: the session is already
// terminal when this runs, the ledger is credited, then the notification is
// attempted best-effort.
func (e *Engine) settleWin(s *session, payout decimal.Decimal, result any) {
	if err := e.ledger.Credit(s.owner, payout, s.currency); err != nil {
		// Only validation errors can surface here; a positive payout in a
		// valid currency never fails.
		e.log.Error("settlement deposit failed",
			zap.String("session", s.id), zap.Error(err))
		return
	}
	e.ledger.RecordWin(s.owner, payout)
	e.notifyBestEffort(s.owner, models.Event{Kind: models.EventResolved, Payload: result})
}

func (e *Engine) forceTerminate(s *session) {
	if !s.claim(models.StatusAborted) {
		return
	}
	e.remove(s)
	e.log.Warn("session force-terminated",
		zap.String("session", s.id),
		zap.Int64("owner", s.owner),
		zap.String("kind", string(s.kind)))
}

func (s *session) payout(multiplier float64) decimal.Decimal {
	return s.stake.Mul(decimal.NewFromFloat(multiplier))
}
