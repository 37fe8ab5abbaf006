package exposure

import (
	"context"

	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
	"github.com/numgame/risk-engine/internal/store"
)

// Gate is the solvency check layered on top of the per-number cap: before a
// bet is admitted, its worst-case payout must fit inside the current prize
// reserve.
//
// The gate compares one bet's payout against the whole reserve rather than
// against cumulative in-draw exposure. This assumes at most one winning
// number per game type per draw — the stated game rules. A variant with
// multiple simultaneous winners per type would invalidate this check.
type Gate struct {
	tracker *Tracker
	store   store.Store
}

// NewGate creates a solvency gate sharing the tracker's store.
func NewGate(tracker *Tracker, st store.Store) *Gate {
	return &Gate{tracker: tracker, store: st}
}

// CanAcceptBet runs the availability check and then the reserve check.
// A rejection from the tracker propagates unchanged; a bet that fits under
// the limit is still rejected if its potential payout exceeds the reserve.
// Pure read; no side effects.
func (g *Gate) CanAcceptBet(ctx context.Context, drawID string, gt model.GameType, number string, amount money.Cents) (*Decision, error) {
	if err := validateBetInput(gt, number, amount); err != nil {
		return nil, err
	}

	led, err := g.store.GetLedger(ctx)
	if err != nil {
		return nil, err
	}

	dec, err := g.tracker.check(ctx, led, drawID, gt, number, amount)
	if err != nil {
		return nil, err
	}

	dec.Reserve = led.Reserve
	dec.PotentialPayout = amount.MulInt(gt.Multiplier())
	if !dec.Available {
		return dec, nil
	}

	if dec.PotentialPayout > led.Reserve {
		dec.Available = false
		dec.Reason = ReasonNoReserve
		dec.Message = msgNoReserve
	}
	return dec, nil
}
