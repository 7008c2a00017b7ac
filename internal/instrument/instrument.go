package instrument

import (
	"github.com/shopspring/decimal"
)

// Instrument holds one symbol's identity and the prices fetched for it.
// Open and Current stay invalid until a fetch task sets them.
type Instrument struct {
	ID      int
	Symbol  string
	Open    decimal.NullDecimal
	Current decimal.NullDecimal
	Return  decimal.Decimal
}

// New creates an unpriced instrument
func New(id int, symbol string) *Instrument {
	return &Instrument{
		ID:     id,
		Symbol: symbol,
	}
}

// SetPrices sets the opening and current prices.
// Either value may be invalid when the remote API did not report it.
func (i *Instrument) SetPrices(open, current decimal.NullDecimal) {
	i.Open = open
	i.Current = current
}

// Priced reports whether both prices are set
func (i *Instrument) Priced() bool {
	return i.Open.Valid && i.Current.Valid
}

// ComputeReturn computes the day return from the stored prices, stores it and returns it
func (i *Instrument) ComputeReturn() decimal.Decimal {
	i.Return = DayReturn(i.Open, i.Current)
	return i.Return
}

// DayReturn returns (current - open) / open.
//
// The result is exactly zero when either price is missing or when open is zero.
// This is not an error: unpriced instruments rank as flat.
func DayReturn(open, current decimal.NullDecimal) decimal.Decimal {
	if !open.Valid || !current.Valid {
		return decimal.Zero
	}
	if open.Decimal.IsZero() {
		return decimal.Zero
	}
	return current.Decimal.Sub(open.Decimal).Div(open.Decimal)
}
