// Package state keeps the per-symbol indicator state, MACD history and
// portfolio facts of the watchlist.
package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"ibrobot/internal/indicator"
	"ibrobot/internal/model"
	"ibrobot/internal/ringbuf"
	"ibrobot/internal/strategy"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnchangedQuote reports a quote carrying the timestamp and close of
	// the last folded bar. Such a quote is not a new bar.
	ErrUnchangedQuote = errors.New("quote unchanged since last bar")
)

// Slot is everything the robot holds for one symbol.
type Slot struct {
	Indicators indicator.State
	History    *ringbuf.Ring[float64]
	Facts      model.PortfolioFact
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	s.History = s.History.Clone()
	return s
}

// Container maps symbols to slots. Readers get copies and writers swap whole
// slots, so a slot is never observed half updated. Steps for different
// symbols may run concurrently; a single symbol must be stepped by one
// goroutine at a time.
type Container struct {
	engine *indicator.Engine
	eval   *strategy.Evaluator

	mu    sync.RWMutex
	slots map[string]Slot
}

// NewContainer creates an empty container.
func NewContainer(engine *indicator.Engine, eval *strategy.Evaluator) *Container {
	return &Container{
		engine: engine,
		eval:   eval,
		slots:  make(map[string]Slot),
	}
}

// Engine returns the indicator engine slots are advanced with.
func (c *Container) Engine() *indicator.Engine { return c.engine }

// Symbols returns the tracked symbols in sorted order.
func (c *Container) Symbols() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.slots))
	for sym := range c.slots {
		out = append(out, sym)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of tracked symbols.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

// Get returns a deep copy of the symbol's slot.
func (c *Container) Get(symbol string) (Slot, bool) {
	c.mu.RLock()
	s, ok := c.slots[symbol]
	c.mu.RUnlock()
	if !ok {
		return Slot{}, false
	}
	return s.Clone(), true
}

// Replace installs slot for symbol, replacing any previous one.
func (c *Container) Replace(symbol string, slot Slot) {
	c.mu.Lock()
	c.slots[symbol] = slot
	c.mu.Unlock()
}

// UpdateFacts replaces the portfolio facts of a symbol, leaving its
// indicator state untouched.
func (c *Container) UpdateFacts(symbol string, facts model.PortfolioFact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[symbol]
	if !ok {
		return fmt.Errorf("state: %s: %w", symbol, ErrUnknownSymbol)
	}
	s.Facts = facts
	c.slots[symbol] = s
	return nil
}

// Seed builds a fresh slot for symbol from its bar history.
func (c *Container) Seed(symbol string, history []model.PriceTick, facts model.PortfolioFact) error {
	st, hist, err := c.engine.Seed(history)
	if err != nil {
		return err
	}
	if st.Symbol == "" {
		st.Symbol = symbol
	}
	c.Replace(symbol, Slot{Indicators: st, History: hist, Facts: facts})
	return nil
}

// Step advances the symbol by one quote and evaluates it. The new slot is
// committed only when the update succeeds. A repeat of the last folded bar
// returns ErrUnchangedQuote and leaves the slot as is.
func (c *Container) Step(symbol string, q model.Quote) (strategy.Signal, error) {
	slot, ok := c.Get(symbol)
	if !ok {
		return strategy.Signal{}, fmt.Errorf("state: %s: %w", symbol, ErrUnknownSymbol)
	}
	if st := slot.Indicators; st.Seeded() && q.Timestamp == st.LastTimestamp && q.Last == st.PrevClose {
		return strategy.Signal{}, fmt.Errorf("state: %s at %d: %w", symbol, q.Timestamp, ErrUnchangedQuote)
	}

	next, err := c.engine.Update(slot.Indicators, slot.History, q.Tick())
	if err != nil {
		return strategy.Signal{}, err
	}
	slot.Indicators = next
	sig := c.eval.Evaluate(next, slot.Facts, q)

	c.mu.Lock()
	if cur, ok := c.slots[symbol]; ok {
		// Facts may have changed through a fill while the step ran.
		slot.Facts = cur.Facts
		c.slots[symbol] = slot
	}
	c.mu.Unlock()
	return sig, nil
}
