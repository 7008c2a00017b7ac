package worldtrading

import (
	"github.com/shopspring/decimal"
)

// Price is a price field as sent by the API.
// The API sends numbers, numeric strings, null or placeholders such as "N/A".
// Anything that does not parse as a number decodes to an invalid price instead of failing the batch.
type Price struct {
	decimal.NullDecimal
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (p *Price) UnmarshalJSON(b []byte) error {
	var d decimal.NullDecimal
	if err := d.UnmarshalJSON(b); err != nil {
		p.NullDecimal = decimal.NullDecimal{}
		return nil
	}
	p.NullDecimal = d
	return nil
}
