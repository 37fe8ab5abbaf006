package capital

import (
	"context"
	"errors"
	"testing"

	"github.com/numgame/risk-engine/internal/limits"
	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
	"github.com/numgame/risk-engine/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	return NewService(ms, limits.NewDefaultCalculator()), ms
}

func TestInitializeCapital(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)

	led, err := svc.InitializeCapital(ctx, money.FromUnits(30000))
	if err != nil {
		t.Fatalf("InitializeCapital: %v", err)
	}
	if led.Reserve != money.FromUnits(30000) || led.Bankroll != 0 {
		t.Errorf("balances = %s/%s, want 30000/0", led.Reserve, led.Bankroll)
	}
	// Bootstraps at the floor; the first settlement recalculates.
	if led.LimitPerNumber != 200 {
		t.Errorf("initial limit = %s, want 2", led.LimitPerNumber)
	}

	txns, err := ms.ListTransactions(ctx, 0)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	txn := txns[0]
	if txn.Type != model.TxInitialCapital || txn.Fund != model.FundReserve ||
		txn.Amount != money.FromUnits(30000) || txn.BalanceAfter != money.FromUnits(30000) {
		t.Errorf("initial transaction = %+v", txn)
	}
}

func TestInitializeCapital_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.InitializeCapital(ctx, money.FromUnits(1000)); err != nil {
		t.Fatalf("InitializeCapital: %v", err)
	}
	if _, err := svc.InitializeCapital(ctx, money.FromUnits(1000)); !errors.Is(err, store.ErrLedgerExists) {
		t.Errorf("expected ErrLedgerExists on re-init, got %v", err)
	}
}

func TestInitializeCapital_RejectsNonPositiveReserve(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, amount := range []money.Cents{0, -100} {
		if _, err := svc.InitializeCapital(ctx, amount); !errors.Is(err, ErrInvalidReserve) {
			t.Errorf("InitializeCapital(%d): expected ErrInvalidReserve, got %v", amount, err)
		}
	}
}

func TestAdjustCapital_TopUpRecalculatesLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.InitializeCapital(ctx, money.FromUnits(6000)); err != nil {
		t.Fatalf("InitializeCapital: %v", err)
	}

	// 6000.00 reserve alone contributes 2.00; a 2500.00 bankroll top-up
	// adds 5.00, so the limit moves off the floor to 7.00.
	led, err := svc.AdjustCapital(ctx, model.FundBankroll, money.FromUnits(2500), "growth funding", "ops-1")
	if err != nil {
		t.Fatalf("AdjustCapital: %v", err)
	}
	if led.Bankroll != money.FromUnits(2500) {
		t.Errorf("bankroll = %s, want 2500", led.Bankroll)
	}
	if led.LimitPerNumber != 700 {
		t.Errorf("limit = %s, want 7", led.LimitPerNumber)
	}

	// A reserve top-up recalculates too: +3000.00 reserve adds 1.00.
	led, err = svc.AdjustCapital(ctx, model.FundReserve, money.FromUnits(3000), "reserve strengthening", "ops-1")
	if err != nil {
		t.Fatalf("AdjustCapital: %v", err)
	}
	if led.Reserve != money.FromUnits(9000) {
		t.Errorf("reserve = %s, want 9000", led.Reserve)
	}
	if led.LimitPerNumber != 800 {
		t.Errorf("limit = %s, want 8", led.LimitPerNumber)
	}
}

func TestAdjustCapital_DrawdownAndAudit(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)

	if _, err := svc.InitializeCapital(ctx, money.FromUnits(6000)); err != nil {
		t.Fatalf("InitializeCapital: %v", err)
	}

	led, err := svc.AdjustCapital(ctx, model.FundReserve, -money.FromUnits(1000), "quarterly distribution", "ops-2")
	if err != nil {
		t.Fatalf("AdjustCapital: %v", err)
	}
	if led.Reserve != money.FromUnits(5000) {
		t.Errorf("reserve = %s, want 5000", led.Reserve)
	}

	txns, _ := ms.ListTransactions(ctx, 1)
	if len(txns) != 1 {
		t.Fatalf("expected a transaction, got %d", len(txns))
	}
	txn := txns[0]
	if txn.Type != model.TxManualAdjustment || txn.Amount != -money.FromUnits(1000) ||
		txn.BalanceBefore != money.FromUnits(6000) || txn.BalanceAfter != money.FromUnits(5000) ||
		txn.Reason != "quarterly distribution" || txn.ActorID != "ops-2" {
		t.Errorf("audit transaction = %+v", txn)
	}
}

func TestAdjustCapital_RejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)

	if _, err := svc.InitializeCapital(ctx, money.FromUnits(1000)); err != nil {
		t.Fatalf("InitializeCapital: %v", err)
	}

	_, err := svc.AdjustCapital(ctx, model.FundReserve, -money.FromUnits(1001), "too deep", "ops-1")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Failed adjustment leaves no trace.
	led, _ := ms.GetLedger(ctx)
	if led.Reserve != money.FromUnits(1000) {
		t.Errorf("reserve mutated by failed adjustment: %s", led.Reserve)
	}
	txns, _ := ms.ListTransactions(ctx, 0)
	if len(txns) != 1 {
		t.Errorf("failed adjustment appended transactions: %d", len(txns))
	}

	// Bankroll starts at zero: any drawdown overdraws.
	if _, err := svc.AdjustCapital(ctx, model.FundBankroll, -1, "impossible", "ops-1"); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds on empty bankroll, got %v", err)
	}
}

func TestAdjustCapital_InputValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.InitializeCapital(ctx, money.FromUnits(1000)); err != nil {
		t.Fatalf("InitializeCapital: %v", err)
	}

	tests := []struct {
		name    string
		fund    model.Fund
		amount  money.Cents
		reason  string
		wantErr error
	}{
		{"fee fund not adjustable", model.FundFee, 100, "r", ErrInvalidFund},
		{"unknown fund", model.Fund("escrow"), 100, "r", ErrInvalidFund},
		{"zero amount", model.FundReserve, 0, "r", ErrZeroAdjustment},
		{"missing reason", model.FundReserve, 100, "", ErrReasonRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AdjustCapital(ctx, tt.fund, tt.amount, tt.reason, "ops-1"); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAdjustCapital_RequiresLedger(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AdjustCapital(context.Background(), model.FundReserve, 100, "r", "ops-1")
	if !errors.Is(err, store.ErrLedgerNotFound) {
		t.Errorf("expected ErrLedgerNotFound, got %v", err)
	}
}
