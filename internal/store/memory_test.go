package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
)

func seedLedger(t *testing.T) *MemoryStore {
	t.Helper()

	ms := NewMemoryStore()
	now := time.Now().UTC()
	led := &model.CapitalLedger{
		Reserve:        100000,
		LimitPerNumber: 1000,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	initial := &model.CapitalTransaction{
		ID:        "txn-initial",
		Type:      model.TxInitialCapital,
		Fund:      model.FundReserve,
		Amount:    100000,
		Reason:    "initial capital",
		CreatedAt: now,
	}
	if err := ms.CreateLedger(context.Background(), led, initial); err != nil {
		t.Fatalf("CreateLedger: %v", err)
	}
	return ms
}

func TestMemoryStore_LedgerLifecycle(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	if _, err := ms.GetLedger(ctx); !errors.Is(err, ErrLedgerNotFound) {
		t.Errorf("expected ErrLedgerNotFound, got %v", err)
	}

	ms = seedLedger(t)
	if err := ms.CreateLedger(ctx, &model.CapitalLedger{}, &model.CapitalTransaction{}); !errors.Is(err, ErrLedgerExists) {
		t.Errorf("expected ErrLedgerExists, got %v", err)
	}

	led, err := ms.GetLedger(ctx)
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	// Returned ledger is a copy; mutating it must not leak into the store.
	led.Reserve = 1
	fresh, _ := ms.GetLedger(ctx)
	if fresh.Reserve != 100000 {
		t.Error("GetLedger returned a shared pointer")
	}
}

// A failing UpdateLedger callback must leave no trace: no ledger change, no
// transactions, no settlements.
func TestMemoryStore_UpdateLedgerRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	ms := seedLedger(t)

	boom := errors.New("boom")
	err := ms.UpdateLedger(ctx, func(ctx context.Context, tx LedgerTx, led *model.CapitalLedger) error {
		led.Reserve = 0
		if err := tx.PutLedger(ctx, led); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, &model.CapitalTransaction{ID: "txn-doomed"}); err != nil {
			return err
		}
		if err := tx.PutSettlement(ctx, &model.DrawSettlement{DrawID: "draw-doomed"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	led, _ := ms.GetLedger(ctx)
	if led.Reserve != 100000 {
		t.Errorf("ledger mutated by failed update: %s", led.Reserve)
	}
	txns, _ := ms.ListTransactions(ctx, 0)
	if len(txns) != 1 {
		t.Errorf("failed update appended transactions: %d", len(txns))
	}
	if _, err := ms.GetSettlement(ctx, "draw-doomed"); !errors.Is(err, ErrSettlementNotFound) {
		t.Errorf("failed update stored a settlement: %v", err)
	}
}

func TestMemoryStore_UpdateLedgerCommits(t *testing.T) {
	ctx := context.Background()
	ms := seedLedger(t)

	err := ms.UpdateLedger(ctx, func(ctx context.Context, tx LedgerTx, led *model.CapitalLedger) error {
		led.Bankroll = 5000
		if err := tx.PutLedger(ctx, led); err != nil {
			return err
		}
		return tx.PutSettlement(ctx, &model.DrawSettlement{DrawID: "draw-1", CreatedAt: time.Now().UTC()})
	})
	if err != nil {
		t.Fatalf("UpdateLedger: %v", err)
	}

	led, _ := ms.GetLedger(ctx)
	if led.Bankroll != 5000 {
		t.Errorf("bankroll = %s, want 50", led.Bankroll)
	}
	if _, err := ms.GetSettlement(ctx, "draw-1"); err != nil {
		t.Errorf("GetSettlement: %v", err)
	}
}

func TestMemoryStore_RegisterExposureGuard(t *testing.T) {
	ctx := context.Background()
	ms := seedLedger(t)

	// Fresh insert beyond the limit fails outright.
	if _, err := ms.RegisterExposure(ctx, "d1", model.GameTwoDigits, "42", 1001, 70070, 1000); !errors.Is(err, ErrLimitExhausted) {
		t.Errorf("expected ErrLimitExhausted, got %v", err)
	}

	rec, err := ms.RegisterExposure(ctx, "d1", model.GameTwoDigits, "42", 600, 42000, 1000)
	if err != nil {
		t.Fatalf("RegisterExposure: %v", err)
	}
	if rec.TotalAmount != 600 || rec.IsSoldOut || rec.LimitSnapshot != 1000 {
		t.Errorf("record = %+v", rec)
	}

	// The add is guarded by the record's own snapshot, not the passed limit.
	if _, err := ms.RegisterExposure(ctx, "d1", model.GameTwoDigits, "42", 500, 35000, 5000); !errors.Is(err, ErrLimitExhausted) {
		t.Errorf("expected snapshot guard to hold, got %v", err)
	}

	rec, err = ms.RegisterExposure(ctx, "d1", model.GameTwoDigits, "42", 400, 28000, 5000)
	if err != nil {
		t.Fatalf("RegisterExposure: %v", err)
	}
	if rec.TotalAmount != 1000 || !rec.IsSoldOut {
		t.Errorf("record at limit = %+v", rec)
	}
}

func TestMemoryStore_ListAndSummarize(t *testing.T) {
	ctx := context.Background()
	ms := seedLedger(t)

	stakes := []struct {
		game   model.GameType
		number string
		amount money.Cents
	}{
		{model.GameTwoDigits, "42", 1000}, // sold out
		{model.GameTwoDigits, "07", 300},
		{model.GameFourDigits, "0942", 500},
	}
	for _, s := range stakes {
		if _, err := ms.RegisterExposure(ctx, "d1", s.game, s.number,
			s.amount, s.amount.MulInt(s.game.Multiplier()), 1000); err != nil {
			t.Fatalf("RegisterExposure(%s %s): %v", s.game, s.number, err)
		}
	}
	// Another draw must not bleed into d1.
	if _, err := ms.RegisterExposure(ctx, "d2", model.GameTwoDigits, "42", 100, 7000, 1000); err != nil {
		t.Fatalf("RegisterExposure d2: %v", err)
	}

	records, err := ms.ListDrawExposures(ctx, "d1")
	if err != nil {
		t.Fatalf("ListDrawExposures: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	summaries, err := ms.SummarizeDrawExposure(ctx, "d1")
	if err != nil {
		t.Fatalf("SummarizeDrawExposure: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 game-type summaries, got %d", len(summaries))
	}
	// Stable game-type order: two_digits first.
	two := summaries[0]
	if two.GameType != model.GameTwoDigits || two.NumbersPlayed != 2 ||
		two.SoldOutNumbers != 1 || two.TotalStaked != 1300 {
		t.Errorf("two_digits summary = %+v", two)
	}
}
