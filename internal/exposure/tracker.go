// Package exposure enforces the per-number betting limit and the solvency
// gate in front of bet placement.
//
// Two independent checks guard every wager: the Tracker caps how much any
// single (game type, number) key may receive within a draw, and the Gate
// verifies the prize reserve could survive this one bet winning. Either
// check rejecting is sufficient to reject the bet. Rejections are structured
// decisions, not errors.
package exposure

import (
	"context"
	"errors"
	"fmt"

	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
	"github.com/numgame/risk-engine/internal/store"
)

// ErrInvalidAmount is returned when a stake is zero or negative.
var ErrInvalidAmount = errors.New("exposure: stake amount must be positive")

// Machine-readable rejection reasons.
const (
	ReasonSoldOut      = "sold_out"
	ReasonOverHeadroom = "over_headroom"
	ReasonNoReserve    = "reserve_insufficient"
)

// Rejection messages surfaced to bettors.
const (
	msgSoldOut      = "number is sold out for this draw"
	msgOverHeadroom = "requested amount exceeds the remaining headroom for this number"
	msgNoReserve    = "prize reserve cannot cover the potential payout of this bet"
)

// Decision is the structured outcome of an availability or solvency check.
type Decision struct {
	Available       bool        `json:"available"`
	Reason          string      `json:"reason,omitempty"`
	Message         string      `json:"message,omitempty"`
	CurrentAmount   money.Cents `json:"current_amount"`
	AvailableAmount money.Cents `json:"available_amount"`
	Limit           money.Cents `json:"limit"`
	PotentialPayout money.Cents `json:"potential_payout,omitempty"`
	Reserve         money.Cents `json:"reserve,omitempty"`
}

// Tracker maintains per-draw, per-game-type, per-number running stake
// totals and decides whether a new bet fits under the current limit.
type Tracker struct {
	store store.Store
}

// NewTracker creates a tracker backed by the given store.
func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st}
}

func validateBetInput(g model.GameType, number string, amount money.Cents) error {
	if err := model.ValidateNumber(g, number); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return nil
}

// CheckAvailability reports whether a stake of the given amount still fits
// under the per-number limit. Pure read; no side effects. An absent
// exposure record means zero stake so far. The boundary is inclusive: a
// request exactly equal to the remaining headroom is admitted.
func (t *Tracker) CheckAvailability(ctx context.Context, drawID string, g model.GameType, number string, amount money.Cents) (*Decision, error) {
	if err := validateBetInput(g, number, amount); err != nil {
		return nil, err
	}

	led, err := t.store.GetLedger(ctx)
	if err != nil {
		return nil, err
	}
	return t.check(ctx, led, drawID, g, number, amount)
}

// check evaluates availability against an already-loaded ledger snapshot.
func (t *Tracker) check(ctx context.Context, led *model.CapitalLedger, drawID string, g model.GameType, number string, amount money.Cents) (*Decision, error) {
	// The limit only changes between draws; a record created earlier in
	// the draw carries the limit in effect when betting opened.
	limit := led.LimitPerNumber
	var current money.Cents
	soldOut := false

	rec, err := t.store.GetExposure(ctx, drawID, g, number)
	switch {
	case err == nil:
		limit = rec.LimitSnapshot
		current = rec.TotalAmount
		soldOut = rec.IsSoldOut
	case errors.Is(err, store.ErrExposureNotFound):
		// First bet on this number: zero exposure.
	default:
		return nil, err
	}

	available := limit - current
	dec := &Decision{
		CurrentAmount:   current,
		AvailableAmount: available,
		Limit:           limit,
	}

	if soldOut || available <= 0 {
		dec.AvailableAmount = 0
		dec.Reason = ReasonSoldOut
		dec.Message = msgSoldOut
		return dec, nil
	}
	if amount > available {
		dec.Reason = ReasonOverHeadroom
		dec.Message = msgOverHeadroom
		return dec, nil
	}

	dec.Available = true
	return dec, nil
}

// RegisterExposure records an accepted stake against its number. It must be
// invoked by the bet-placement flow within the same commit that durably
// records the wager, after the bet was admitted. The insert-or-add is a
// single atomic store operation re-checked against the database's current
// state, so a stake that lost a race for the last headroom fails with
// store.ErrLimitExhausted instead of breaching the limit.
func (t *Tracker) RegisterExposure(ctx context.Context, drawID string, g model.GameType, number string, amount money.Cents) (*model.ExposureRecord, error) {
	if err := validateBetInput(g, number, amount); err != nil {
		return nil, err
	}

	led, err := t.store.GetLedger(ctx)
	if err != nil {
		return nil, err
	}

	payout := amount.MulInt(g.Multiplier())
	return t.store.RegisterExposure(ctx, drawID, g, number, amount, payout, led.LimitPerNumber)
}
