// Package capital handles operator-initiated capital movements: the one-time
// bootstrap of the capital ledger and manual top-ups/drawdowns of either
// fund. Lower-frequency admin path into the same ledger the settlement
// engine mutates; both serialize on the ledger row lock.
package capital

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
	ErrInvalidReserve    = errors.New("capital: initial reserve must be positive")
	ErrInvalidFund       = errors.New("capital: adjustment fund must be reserve or bankroll")
	ErrZeroAdjustment    = errors.New("capital: adjustment amount must be non-zero")
	ErrReasonRequired    = errors.New("capital: adjustment reason is required")
	ErrInsufficientFunds = errors.New("capital: adjustment would drive the fund negative")
)

// Service performs capital initialization and manual adjustments.
type Service struct {
	store store.Store
	calc  *limits.Calculator
}

// NewService creates a capital service.
func NewService(st store.Store, calc *limits.Calculator) *Service {
	return &Service{store: st, calc: calc}
}

// InitializeCapital creates the capital ledger exactly once: zero bankroll,
// the given reserve, and the minimum betting limit (the first settlement
// recalculates it from the formula). Fails with store.ErrLedgerExists if the
// deployment is already initialized.
func (s *Service) InitializeCapital(ctx context.Context, initialReserve money.Cents) (*model.CapitalLedger, error) {
	if initialReserve <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReserve, initialReserve)
	}

	now := time.Now().UTC()
	led := &model.CapitalLedger{
		Reserve:        initialReserve,
		LimitPerNumber: s.calc.Min(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	initial := &model.CapitalTransaction{
		ID:            uuid.New().String(),
		Type:          model.TxInitialCapital,
		Fund:          model.FundReserve,
		Amount:        initialReserve,
		BalanceBefore: 0,
		BalanceAfter:  initialReserve,
		Reason:        "initial capital",
		CreatedAt:     now,
	}

	if err := s.store.CreateLedger(ctx, led, initial); err != nil {
		return nil, err
	}

	slog.Info("capital ledger initialized",
		"reserve", initialReserve.String(),
		"limit", led.LimitPerNumber.String(),
	)
	return led, nil
}

// AdjustCapital applies a manual top-up (positive amount) or drawdown
// (negative amount) to one fund under the exclusive ledger lock. Rejects
// adjustments that would leave the fund negative. The per-number limit is
// recalculated whenever either fund changes, since the limit formula
// depends on both.
func (s *Service) AdjustCapital(ctx context.Context, fund model.Fund, amount money.Cents, reason, actorID string) (*model.CapitalLedger, error) {
	if !model.ValidAdjustmentFund(fund) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFund, fund)
	}
	if amount == 0 {
		return nil, ErrZeroAdjustment
	}
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var out *model.CapitalLedger
	err := s.store.UpdateLedger(ctx, func(ctx context.Context, tx store.LedgerTx, led *model.CapitalLedger) error {
		var before money.Cents
		if fund == model.FundReserve {
			before = led.Reserve
		} else {
			before = led.Bankroll
		}

		after := before + amount
		if after < 0 {
			return fmt.Errorf("%w: %s balance %s, adjustment %s",
				ErrInsufficientFunds, fund, before, amount)
		}

		if fund == model.FundReserve {
			led.Reserve = after
		} else {
			led.Bankroll = after
		}
		led.LimitPerNumber = s.calc.NewLimit(led.Bankroll, led.Reserve)
		led.UpdatedAt = time.Now().UTC()

		txn := &model.CapitalTransaction{
			ID:            uuid.New().String(),
			Type:          model.TxManualAdjustment,
			Fund:          fund,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Reason:        reason,
			ActorID:       actorID,
			CreatedAt:     led.UpdatedAt,
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return err
		}
		if err := tx.PutLedger(ctx, led); err != nil {
			return err
		}

		copied := *led
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("capital adjusted",
		"fund", string(fund),
		"amount", amount.String(),
		"actor", actorID,
		"new_limit", out.LimitPerNumber.String(),
	)
	return out, nil
}
