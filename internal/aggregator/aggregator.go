package aggregator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"stockranker/internal/batch"
	"stockranker/internal/instrument"
)

var (
	// ErrUnknownSymbol is returned when no instrument matches a symbol
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrOutOfGroup is returned when a writer is handed a symbol outside its group
	ErrOutOfGroup = errors.New("symbol not in group")
	// ErrAlreadyApplied is returned when a writer sees the same symbol twice
	ErrAlreadyApplied = errors.New("prices already applied")
)

// Aggregator merges fetched prices into a universe.
// All writes to instruments go through a single mutex.
type Aggregator struct {
	mu       sync.Mutex
	universe *instrument.Universe
	total    int

	completed atomic.Int64
}

// New creates an Aggregator over universe expecting groups completions
func New(universe *instrument.Universe, groups int) *Aggregator {
	return &Aggregator{
		universe: universe,
		total:    groups,
	}
}

// ApplyPrices sets the prices of the instrument matching symbol
func (a *Aggregator) ApplyPrices(symbol string, open, current decimal.NullDecimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	inst, ok := a.universe.Lookup(symbol)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	inst.SetPrices(open, current)
	return nil
}

// Writer returns a write handle restricted to the symbols of g.
// A writer must only be used by the task that fetches g.
func (a *Aggregator) Writer(g batch.Group) *GroupWriter {
	allowed := make(map[string]bool, len(g.Symbols))
	for _, s := range g.Symbols {
		allowed[s] = false
	}

	return &GroupWriter{
		agg:     a,
		group:   g.Index,
		allowed: allowed,
	}
}

// Complete marks one group as finished and returns the number of completed groups.
// It is called once per group whatever the group's outcome.
func (a *Aggregator) Complete() int {
	return int(a.completed.Add(1))
}

// Completed returns the number of completed groups
func (a *Aggregator) Completed() int {
	return int(a.completed.Load())
}

// Total returns the number of expected groups
func (a *Aggregator) Total() int {
	return a.total
}

// GroupWriter applies prices for the symbols of a single group
type GroupWriter struct {
	agg     *Aggregator
	group   int
	allowed map[string]bool // symbol -> applied
}

// Apply sets the prices of symbol.
// Symbols outside the group and repeated symbols are rejected.
func (w *GroupWriter) Apply(symbol string, open, current decimal.NullDecimal) error {
	applied, ok := w.allowed[symbol]
	if !ok {
		return fmt.Errorf("%w %d: %s", ErrOutOfGroup, w.group, symbol)
	}
	if applied {
		return fmt.Errorf("%w: %s", ErrAlreadyApplied, symbol)
	}

	if err := w.agg.ApplyPrices(symbol, open, current); err != nil {
		return err
	}
	w.allowed[symbol] = true
	return nil
}

// Applied returns the number of symbols written through w
func (w *GroupWriter) Applied() int {
	n := 0
	for _, applied := range w.allowed {
		if applied {
			n++
		}
	}
	return n
}
