package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/numgame/risk-engine/internal/limits"
	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
	"github.com/numgame/risk-engine/internal/store"
)

var (
	ErrMissingDrawID  = errors.New("settle: draw id is required")
	ErrInvalidPool    = errors.New("settle: total pool must be non-negative")
	ErrInvalidPrizes  = errors.New("settle: prizes paid must be non-negative")
	ErrPrizesMismatch = errors.New("settle: prizes paid does not match per-game results")

	// ErrReserveDeficit means the reserve cannot absorb the prizes already
	// paid even after its share of this pool. The draw-resolution flow must
	// never let this happen; the engine refuses to commit rather than
	// persist a negative balance.
	ErrReserveDeficit = errors.New("settle: settlement would drive the prize reserve negative")
)

// Params carries one draw's resolution, supplied exactly once per draw by
// the draw-resolution flow after winners were determined and credited.
type Params struct {
	DrawID     string             `json:"draw_id"`
	TotalPool  money.Cents        `json:"total_pool"`
	PrizesPaid money.Cents        `json:"prizes_paid"`
	Results    []model.GameResult `json:"results"`
}

// Engine settles draw pools against the capital ledger.
type Engine struct {
	store store.Store
	calc  *limits.Calculator
}

// NewEngine creates a settlement engine.
func NewEngine(st store.Store, calc *limits.Calculator) *Engine {
	return &Engine{store: st, calc: calc}
}

func (p Params) validate() error {
	if p.DrawID == "" {
		return ErrMissingDrawID
	}
	if p.TotalPool < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPool, p.TotalPool)
	}
	if p.PrizesPaid < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPrizes, p.PrizesPaid)
	}

	var fromResults money.Cents
	for _, r := range p.Results {
		if err := model.ValidateNumber(r.GameType, r.WinningNumber); err != nil {
			return err
		}
		fromResults += r.PrizePaid
	}
	if len(p.Results) > 0 && fromResults != p.PrizesPaid {
		return fmt.Errorf("%w: results sum %s, prizes paid %s",
			ErrPrizesMismatch, fromResults, p.PrizesPaid)
	}
	return nil
}

// SettleDrawPool atomically distributes a resolved draw's pool. Under the
// exclusive ledger lock it nets the prizes already paid out of the reserve,
// restocks reserve and bankroll from the pool, recalculates the per-number
// limit, appends one capital transaction per fund movement, and writes the
// settlement row. Any failure rolls back the entire operation.
//
// Retrying with the same drawID is idempotent: once a settlement row exists
// the stored row is returned and the ledger is not touched again. The caller
// must close the draw to new bets before invoking settlement.
func (e *Engine) SettleDrawPool(ctx context.Context, p Params) (*model.DrawSettlement, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	hasWinner := p.PrizesPaid > 0
	var out *model.DrawSettlement

	err := e.store.UpdateLedger(ctx, func(ctx context.Context, tx store.LedgerTx, led *model.CapitalLedger) error {
		existing, err := tx.GetSettlement(ctx, p.DrawID)
		if err == nil {
			slog.Warn("draw already settled, returning stored settlement",
				"draw_id", p.DrawID)
			out = existing
			return nil
		}
		if !errors.Is(err, store.ErrSettlementNotFound) {
			return err
		}

		split, err := DistributionFor(hasWinner).Split(p.TotalPool)
		if err != nil {
			return err
		}
		if split.Fee+split.ToReserve+split.ToBankroll != p.TotalPool {
			// Cannot happen with a balanced table; refuse to commit an
			// inconsistent ledger regardless.
			return fmt.Errorf("%w: split does not reassemble pool %s",
				ErrUnbalancedDistribution, p.TotalPool)
		}

		// The reserve spent the prizes at payout time from the caller's
		// perspective; net that spend and restock from the pool.
		reserveAfterPrizes := led.Reserve - p.PrizesPaid
		newReserve := reserveAfterPrizes + split.ToReserve
		if newReserve < 0 {
			return fmt.Errorf("%w: reserve %s, prizes %s, share %s",
				ErrReserveDeficit, led.Reserve, p.PrizesPaid, split.ToReserve)
		}
		newBankroll := led.Bankroll + split.ToBankroll
		newLimit := e.calc.NewLimit(newBankroll, newReserve)

		now := time.Now().UTC()
		txns := []*model.CapitalTransaction{
			{
				ID:            uuid.New().String(),
				Type:          model.TxFeeCollection,
				Fund:          model.FundFee,
				Amount:        split.Fee,
				BalanceBefore: led.TotalFees,
				BalanceAfter:  led.TotalFees + split.Fee,
				Reason:        "operator fee share of draw pool",
				DrawID:        p.DrawID,
				CreatedAt:     now,
			},
		}
		if hasWinner {
			txns = append(txns, &model.CapitalTransaction{
				ID:            uuid.New().String(),
				Type:          model.TxPrizePayout,
				Fund:          model.FundReserve,
				Amount:        -p.PrizesPaid,
				BalanceBefore: led.Reserve,
				BalanceAfter:  reserveAfterPrizes,
				Reason:        "prizes paid to draw winners",
				DrawID:        p.DrawID,
				CreatedAt:     now,
			})
		}
		txns = append(txns,
			&model.CapitalTransaction{
				ID:            uuid.New().String(),
				Type:          model.TxReserveTopUp,
				Fund:          model.FundReserve,
				Amount:        split.ToReserve,
				BalanceBefore: reserveAfterPrizes,
				BalanceAfter:  newReserve,
				Reason:        "reserve share of draw pool",
				DrawID:        p.DrawID,
				CreatedAt:     now,
			},
			&model.CapitalTransaction{
				ID:            uuid.New().String(),
				Type:          model.TxBankrollTopUp,
				Fund:          model.FundBankroll,
				Amount:        split.ToBankroll,
				BalanceBefore: led.Bankroll,
				BalanceAfter:  newBankroll,
				Reason:        "bankroll share of draw pool",
				DrawID:        p.DrawID,
				CreatedAt:     now,
			},
		)
		for _, txn := range txns {
			if err := tx.AppendTransaction(ctx, txn); err != nil {
				return err
			}
		}

		led.Bankroll = newBankroll
		led.Reserve = newReserve
		led.LimitPerNumber = newLimit
		led.TotalStaked += p.TotalPool
		led.TotalPrizesPaid += p.PrizesPaid
		led.TotalFees += split.Fee
		led.UpdatedAt = now
		if err := tx.PutLedger(ctx, led); err != nil {
			return err
		}

		st := &model.DrawSettlement{
			DrawID:      p.DrawID,
			TotalPool:   p.TotalPool,
			PrizesPaid:  p.PrizesPaid,
			HasWinner:   hasWinner,
			Results:     p.Results,
			FeeShare:    split.Fee,
			ToReserve:   split.ToReserve,
			ToBankroll:  split.ToBankroll,
			NewBankroll: newBankroll,
			NewReserve:  newReserve,
			NewLimit:    newLimit,
			CreatedAt:   now,
		}
		if err := tx.PutSettlement(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("draw settled",
		"draw_id", out.DrawID,
		"pool", out.TotalPool.String(),
		"prizes_paid", out.PrizesPaid.String(),
		"has_winner", out.HasWinner,
		"new_reserve", out.NewReserve.String(),
		"new_bankroll", out.NewBankroll.String(),
		"new_limit", out.NewLimit.String(),
	)
	return out, nil
}
