// Package limits implements the per-number betting limit calculation.
//
// The limit sizes how much total stake any single (game type, number) key
// may receive within one draw:
//
//	limit = clamp(reserve/3000 + bankroll/500, min, max)
//
// The reserve term lets the prize reserve absorb a worst-case payout at the
// highest multiplier (1000x) with a 3x safety margin; the bankroll term
// grants one unit of extra per-number capacity for every 500 units of
// accumulated growth capital.
//
// The calculator is stateless and pure — capital balances are passed as
// arguments, not stored. All arithmetic is in integer cents, floored to the
// cent, which keeps the function monotonic non-decreasing in both inputs.
package limits

import (
	"errors"

	"github.com/numgame/risk-engine/internal/money"
)

// ErrInvalidBounds is returned when min/max are non-positive or inverted.
var ErrInvalidBounds = errors.New("limits: bounds must satisfy 0 < min <= max")

// Divisors of the limit formula.
const (
	reserveDivisor  = 3000
	bankrollDivisor = 500
)

// Default clamp bounds, in whole currency units.
const (
	DefaultMinUnits = 2
	DefaultMaxUnits = 1000
)

// Calculator maps capital state to the per-number betting limit.
type Calculator struct {
	min money.Cents
	max money.Cents
}

// NewCalculator creates a calculator clamping results to [min, max].
func NewCalculator(min, max money.Cents) (*Calculator, error) {
	if min <= 0 || max < min {
		return nil, ErrInvalidBounds
	}
	return &Calculator{min: min, max: max}, nil
}

// NewDefaultCalculator creates a calculator with the default 2..1000 unit
// bounds.
func NewDefaultCalculator() *Calculator {
	c, _ := NewCalculator(money.FromUnits(DefaultMinUnits), money.FromUnits(DefaultMaxUnits))
	return c
}

// Min returns the lower clamp bound.
func (c *Calculator) Min() money.Cents { return c.min }

// Max returns the upper clamp bound.
func (c *Calculator) Max() money.Cents { return c.max }

// NewLimit computes the per-number limit for the given capital state.
// Negative balances never occur in a committed ledger; they are treated as
// zero so the result stays within bounds regardless.
func (c *Calculator) NewLimit(bankroll, reserve money.Cents) money.Cents {
	if bankroll < 0 {
		bankroll = 0
	}
	if reserve < 0 {
		reserve = 0
	}

	limit := reserve/reserveDivisor + bankroll/bankrollDivisor

	if limit < c.min {
		return c.min
	}
	if limit > c.max {
		return c.max
	}
	return limit
}
