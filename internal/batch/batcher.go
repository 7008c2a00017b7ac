package batch

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultGroupSize is the number of symbols requested per call
const DefaultGroupSize = 5

// ErrInvalidGroupSize is returned for group sizes below one
var ErrInvalidGroupSize = errors.New("group size must be at least 1")

// Group is the request descriptor for one network call
type Group struct {
	Index   int
	Symbols []string
}

// Query returns the symbols joined the way the remote API expects them
func (g Group) Query() string {
	return strings.Join(g.Symbols, ",")
}

// Batcher splits an ordered symbol list into fixed-size groups
type Batcher struct {
	symbols   []string
	size      int
	remainder bool
}

// Option configures a Batcher
type Option func(*Batcher)

// WithRemainder makes the trailing short group fetchable.
// Without it the trailing symbols are never requested.
func WithRemainder() Option {
	return func(b *Batcher) {
		b.remainder = true
	}
}

// New creates a Batcher over symbols
func New(symbols []string, size int, opts ...Option) (*Batcher, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGroupSize, size)
	}

	b := &Batcher{
		symbols: symbols,
		size:    size,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// GroupCount returns floor(total / size).
// A trailing partial group is not counted.
func GroupCount(total, size int) int {
	return total / size
}

// Size returns the group size
func (b *Batcher) Size() int {
	return b.size
}

// Count returns the number of groups that will be fetched
func (b *Batcher) Count() int {
	n := GroupCount(len(b.symbols), b.size)
	if b.remainder && len(b.symbols)%b.size != 0 {
		n++
	}
	return n
}

// Build returns the group at index.
// Indices outside [0, Count()) are a programming error and panic.
func (b *Batcher) Build(index int) Group {
	if index < 0 || index >= b.Count() {
		panic(fmt.Sprintf("batch: group index %d out of range [0, %d)", index, b.Count()))
	}

	start := index * b.size
	end := min(start+b.size, len(b.symbols))

	symbols := make([]string, end-start)
	copy(symbols, b.symbols[start:end])

	return Group{
		Index:   index,
		Symbols: symbols,
	}
}

// Groups returns every fetchable group in order
func (b *Batcher) Groups() []Group {
	groups := make([]Group, b.Count())
	for i := range groups {
		groups[i] = b.Build(i)
	}
	return groups
}

// Dropped returns the trailing symbols that no group covers
func (b *Batcher) Dropped() []string {
	covered := min(b.Count()*b.size, len(b.symbols))
	return b.symbols[covered:]
}
