// Package money provides fixed-point monetary arithmetic in integer minor
// units (cents). All bankroll, reserve, stake, and payout math in the engine
// runs on Cents; shopspring/decimal is used only at the I/O boundary to
// parse and render human-readable amounts. Never float64 for money.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrSubCent is returned when a decimal amount carries precision finer than
// one cent. Such amounts cannot be represented and are rejected rather than
// silently rounded.
var ErrSubCent = errors.New("money: amount has sub-cent precision")

// Cents is a monetary amount in integer minor units. Signed: manual
// drawdowns and prize payouts are negative movements.
type Cents int64

var hundred = decimal.NewFromInt(100)

// FromDecimal converts a decimal currency amount to Cents.
// Rejects amounts with more than two decimal places.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrSubCent, d)
	}
	return Cents(scaled.IntPart()), nil
}

// FromUnits converts whole currency units to Cents.
func FromUnits(units int64) Cents {
	return Cents(units * 100)
}

// Decimal renders the amount as a two-decimal-place currency value.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// MulInt multiplies the amount by an integer factor (e.g. a payout
// multiplier). Exact: no rounding occurs.
func (c Cents) MulInt(n int64) Cents {
	return Cents(int64(c) * n)
}

// ShareBP returns the given basis-point share of the amount, floored to the
// cent. 10000 basis points = 100%.
func (c Cents) ShareBP(bp int64) Cents {
	return Cents(int64(c) * bp / 10000)
}

// String renders the amount as a decimal currency string, e.g. "12.34".
func (c Cents) String() string {
	return c.Decimal().String()
}

// MarshalJSON renders the amount as a quoted decimal currency string,
// matching how decimal.Decimal fields serialize elsewhere in the API.
func (c Cents) MarshalJSON() ([]byte, error) {
	return c.Decimal().MarshalJSON()
}

// UnmarshalJSON parses a decimal currency value (quoted or bare number).
func (c *Cents) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
