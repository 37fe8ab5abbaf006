// Package store defines the persistence interface for the risk engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache for immutable/aggregate reads), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
)

var (
	// ErrLedgerExists is returned when capital initialization runs against
	// an already-initialized deployment.
	ErrLedgerExists = errors.New("store: capital ledger already initialized")

	// ErrLedgerNotFound is returned when the capital ledger row does not
	// exist yet.
	ErrLedgerNotFound = errors.New("store: capital ledger not initialized")

	// ErrExposureNotFound is returned when no stake has been recorded for
	// a (draw, game type, number) key. Callers treat it as zero exposure.
	ErrExposureNotFound = errors.New("store: exposure record not found")

	// ErrSettlementNotFound is returned when a draw has no settlement row.
	ErrSettlementNotFound = errors.New("store: draw settlement not found")

	// ErrLimitExhausted is returned when an exposure registration does not
	// fit under the per-number limit at the moment the upsert executes.
	// This is the authoritative race-safe guard; availability checks are
	// advisory reads.
	ErrLimitExhausted = errors.New("store: per-number limit exhausted")
)

// LedgerTx exposes the writes permitted while the capital ledger row is
// exclusively locked. All writes commit or roll back together.
type LedgerTx interface {
	// PutLedger persists the updated capital ledger.
	PutLedger(ctx context.Context, led *model.CapitalLedger) error

	// AppendTransaction appends an immutable capital audit entry.
	AppendTransaction(ctx context.Context, txn *model.CapitalTransaction) error

	// GetSettlement reads a draw's settlement row inside the transaction,
	// for idempotent-retry detection.
	GetSettlement(ctx context.Context, drawID string) (*model.DrawSettlement, error)

	// PutSettlement upserts the settlement row for a draw.
	PutSettlement(ctx context.Context, s *model.DrawSettlement) error
}

// Store is the persistence interface. PostgreSQL is the source of truth;
// the relational store is also the synchronization point — no in-process
// state is authoritative.
type Store interface {
	// --- Capital ledger (singleton row) ---

	// CreateLedger creates the capital ledger exactly once, together with
	// its initial-capital transaction. Returns ErrLedgerExists on retry.
	CreateLedger(ctx context.Context, led *model.CapitalLedger, initial *model.CapitalTransaction) error

	// GetLedger returns the current capital snapshot.
	GetLedger(ctx context.Context) (*model.CapitalLedger, error)

	// UpdateLedger runs fn with the ledger row exclusively locked, then
	// commits. If fn returns an error nothing is persisted. Concurrent
	// settlements and adjustments serialize on the row lock.
	UpdateLedger(ctx context.Context, fn func(ctx context.Context, tx LedgerTx, led *model.CapitalLedger) error) error

	// --- Exposure records ---

	// GetExposure reads the running total for one number within a draw.
	GetExposure(ctx context.Context, drawID string, g model.GameType, number string) (*model.ExposureRecord, error)

	// RegisterExposure atomically adds a stake to a number's running total,
	// creating the record on first bet. The insert-or-add is a single
	// atomic operation guarded by the limit: it fails with
	// ErrLimitExhausted instead of ever pushing totalAmount past the limit,
	// regardless of concurrent registrations.
	RegisterExposure(ctx context.Context, drawID string, g model.GameType, number string,
		amount, payout, limit money.Cents) (*model.ExposureRecord, error)

	// ListDrawExposures returns every exposure record of a draw.
	ListDrawExposures(ctx context.Context, drawID string) ([]model.ExposureRecord, error)

	// SummarizeDrawExposure aggregates a draw's exposure per game type.
	SummarizeDrawExposure(ctx context.Context, drawID string) ([]model.GameTypeExposure, error)

	// --- Settlement & audit history ---

	// GetSettlement returns the settlement row for a draw.
	GetSettlement(ctx context.Context, drawID string) (*model.DrawSettlement, error)

	// ListSettlements returns the most recent settlements, newest first.
	ListSettlements(ctx context.Context, limit int) ([]model.DrawSettlement, error)

	// ListTransactions returns the most recent capital transactions,
	// newest first.
	ListTransactions(ctx context.Context, limit int) ([]model.CapitalTransaction, error)
}
