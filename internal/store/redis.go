package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Only two read paths are cached: settlement rows (immutable once
// written, safe to cache long) and per-draw exposure summaries (short TTL,
// invalidated on registration). Ledger reads deliberately pass through so
// the solvency gate always compares against the current prize reserve.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store. ttl
// bounds the staleness of exposure summaries; settlements use 10x ttl.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Passthrough: capital ledger (never cached) ---

func (s *CachedStore) CreateLedger(ctx context.Context, led *model.CapitalLedger, initial *model.CapitalTransaction) error {
	return s.primary.CreateLedger(ctx, led, initial)
}

func (s *CachedStore) GetLedger(ctx context.Context) (*model.CapitalLedger, error) {
	return s.primary.GetLedger(ctx)
}

func (s *CachedStore) UpdateLedger(ctx context.Context, fn func(ctx context.Context, tx LedgerTx, led *model.CapitalLedger) error) error {
	return s.primary.UpdateLedger(ctx, fn)
}

// --- Exposure: write invalidates the draw summary ---

func (s *CachedStore) GetExposure(ctx context.Context, drawID string, g model.GameType, number string) (*model.ExposureRecord, error) {
	return s.primary.GetExposure(ctx, drawID, g, number)
}

func (s *CachedStore) RegisterExposure(ctx context.Context, drawID string, g model.GameType, number string,
	amount, payout, limit money.Cents) (*model.ExposureRecord, error) {

	rec, err := s.primary.RegisterExposure(ctx, drawID, g, number, amount, payout, limit)
	if err != nil {
		return nil, err
	}
	s.rdb.Del(ctx, drawSummaryKey(drawID))
	return rec, nil
}

func (s *CachedStore) ListDrawExposures(ctx context.Context, drawID string) ([]model.ExposureRecord, error) {
	return s.primary.ListDrawExposures(ctx, drawID)
}

func (s *CachedStore) SummarizeDrawExposure(ctx context.Context, drawID string) ([]model.GameTypeExposure, error) {
	key := drawSummaryKey(drawID)
	if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var summaries []model.GameTypeExposure
		if json.Unmarshal(data, &summaries) == nil {
			return summaries, nil
		}
	}

	summaries, err := s.primary.SummarizeDrawExposure(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(summaries); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return summaries, nil
}

// --- Settlements: immutable rows, read-through cached ---

func (s *CachedStore) GetSettlement(ctx context.Context, drawID string) (*model.DrawSettlement, error) {
	key := settlementKey(drawID)
	if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var st model.DrawSettlement
		if json.Unmarshal(data, &st) == nil {
			return &st, nil
		}
	}

	st, err := s.primary.GetSettlement(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(st); err == nil {
		s.rdb.Set(ctx, key, data, 10*s.ttl)
	}
	return st, nil
}

func (s *CachedStore) ListSettlements(ctx context.Context, limit int) ([]model.DrawSettlement, error) {
	return s.primary.ListSettlements(ctx, limit)
}

func (s *CachedStore) ListTransactions(ctx context.Context, limit int) ([]model.CapitalTransaction, error) {
	return s.primary.ListTransactions(ctx, limit)
}

// --- Cache keys ---

func settlementKey(drawID string) string  { return fmt.Sprintf("settlement:%s", drawID) }
func drawSummaryKey(drawID string) string { return fmt.Sprintf("drawexp:%s", drawID) }
