package instrument

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyUniverse is returned when no symbols are given
	ErrEmptyUniverse = errors.New("empty symbol universe")
	// ErrDuplicateSymbol is returned when a symbol appears twice in the input
	ErrDuplicateSymbol = errors.New("duplicate symbol")
)

// Universe is the ordered set of instruments to rank, indexed by symbol.
// It is not safe for concurrent mutation; writers go through the aggregator.
type Universe struct {
	instruments []*Instrument
	bySymbol    map[string]*Instrument
}

// NewUniverse creates one instrument per symbol, numbered by input order
func NewUniverse(symbols []string) (*Universe, error) {
	if len(symbols) == 0 {
		return nil, ErrEmptyUniverse
	}

	u := &Universe{
		instruments: make([]*Instrument, 0, len(symbols)),
		bySymbol:    make(map[string]*Instrument, len(symbols)),
	}
	for id, symbol := range symbols {
		if _, exists := u.bySymbol[symbol]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, symbol)
		}
		inst := New(id, symbol)
		u.instruments = append(u.instruments, inst)
		u.bySymbol[symbol] = inst
	}

	return u, nil
}

// Len returns the number of instruments
func (u *Universe) Len() int {
	return len(u.instruments)
}

// Instruments returns the instruments in input order
func (u *Universe) Instruments() []*Instrument {
	return u.instruments
}

// Symbols returns the symbols in input order
func (u *Universe) Symbols() []string {
	symbols := make([]string, len(u.instruments))
	for i, inst := range u.instruments {
		symbols[i] = inst.Symbol
	}
	return symbols
}

// Lookup returns the instrument for symbol
func (u *Universe) Lookup(symbol string) (*Instrument, bool) {
	inst, ok := u.bySymbol[symbol]
	return inst, ok
}
