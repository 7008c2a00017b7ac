package coordinator

import (
	"slices"

	"stockranker/internal/instrument"
)

// Rank returns the instruments sorted by return, highest first.
// Equal returns keep their input order. The input slice is not modified.
func Rank(instruments []*instrument.Instrument) []*instrument.Instrument {
	ranked := slices.Clone(instruments)
	slices.SortStableFunc(ranked, func(a, b *instrument.Instrument) int {
		return b.Return.Cmp(a.Return)
	})
	return ranked
}
