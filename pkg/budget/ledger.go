package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"transcriptor/pkg/logging"
	"transcriptor/pkg/storage"
)

const stateKey = "budget"

// State is the persisted ledger document.
type State struct {
	LimitUSD    float64 `json:"limit"`
	ConsumedUSD float64 `json:"consumed"`
	Date        string  `json:"date"`
}

// Stats is the read-only view served to callers.
type Stats struct {
	LimitUSD     float64 `json:"limit_usd"`
	ConsumedUSD  float64 `json:"consumed_usd"`
	RemainingUSD float64 `json:"remaining_usd"`
	Percentage   float64 `json:"percentage"`
	Date         string  `json:"date"`
}

// Ledger tracks and gates daily spend. Every check and consume lazily resets
// the consumed amount when the stored date is not today. Single-writer
// desktop context; the store is read-modify-written without cross-process
// locking.
type Ledger struct {
	store storage.Store
	mu    sync.Mutex
	now   func() time.Time
	log   *log.Logger

	defaultLimit float64
}

func NewLedger(store storage.Store, defaultLimitUSD float64) *Ledger {
	if defaultLimitUSD <= 0 {
		defaultLimitUSD = 2.0
	}
	return &Ledger{
		store:        store,
		now:          time.Now,
		log:          logging.New("budget"),
		defaultLimit: defaultLimitUSD,
	}
}

// SetClock replaces the time source. Tests use it to cross midnight.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// CheckAvailable reports whether spending cost would stay within today's
// limit.
func (l *Ledger) CheckAvailable(cost float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.resetIfNewDay()
	ok := state.ConsumedUSD+cost <= state.LimitUSD
	l.log.Debug("budget check", "cost", cost, "consumed", state.ConsumedUSD, "limit", state.LimitUSD, "ok", ok)
	return ok
}

// Consume records a spend against today's budget.
func (l *Ledger) Consume(cost float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.resetIfNewDay()
	state.ConsumedUSD += cost
	if err := l.store.Put(stateKey, state); err != nil {
		return fmt.Errorf("failed to persist budget: %w", err)
	}
	l.log.Info("budget consumed", "cost", cost, "total_today", state.ConsumedUSD)
	return nil
}

// Remaining returns the budget left today, never negative.
func (l *Ledger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.resetIfNewDay()
	remaining := state.LimitUSD - state.ConsumedUSD
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// SetLimit updates the daily limit. It must be positive.
func (l *Ledger) SetLimit(limit float64) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0, got %v", limit)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.load()
	state.LimitUSD = limit
	if err := l.store.Put(stateKey, state); err != nil {
		return fmt.Errorf("failed to persist budget: %w", err)
	}
	l.log.Info("budget limit set", "limit", limit)
	return nil
}

// GetStats returns today's ledger view.
func (l *Ledger) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.resetIfNewDay()
	remaining := state.LimitUSD - state.ConsumedUSD
	if remaining < 0 {
		remaining = 0
	}
	var pct float64
	if state.LimitUSD > 0 {
		pct = state.ConsumedUSD / state.LimitUSD * 100
	}
	return Stats{
		LimitUSD:     state.LimitUSD,
		ConsumedUSD:  state.ConsumedUSD,
		RemainingUSD: remaining,
		Percentage:   pct,
		Date:         state.Date,
	}
}

func (l *Ledger) load() *State {
	state := &State{}
	err := l.store.Get(stateKey, state)
	if errors.Is(err, storage.ErrNotFound) || state.LimitUSD <= 0 {
		state = &State{LimitUSD: l.defaultLimit}
	} else if err != nil {
		l.log.Warn("failed to load budget state, using defaults", "error", err)
		state = &State{LimitUSD: l.defaultLimit}
	}
	return state
}

func (l *Ledger) resetIfNewDay() *State {
	state := l.load()
	today := l.now().Format("2006-01-02")

	if state.Date != today {
		l.log.Info("new day, resetting consumed budget", "date", today)
		state.ConsumedUSD = 0
		state.Date = today
		if err := l.store.Put(stateKey, state); err != nil {
			l.log.Error("failed to persist budget reset", "error", err)
		}
	}
	return state
}
