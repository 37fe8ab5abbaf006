package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence). It preserves
// the transactional semantics of the Postgres store: UpdateLedger commits
// all writes together or none, and RegisterExposure is a single atomic
// guarded insert-or-add.
type MemoryStore struct {
	mu          sync.Mutex
	ledger      *model.CapitalLedger
	exposures   map[exposureKey]*model.ExposureRecord
	txns        []model.CapitalTransaction
	settlements map[string]*model.DrawSettlement
}

type exposureKey struct {
	drawID   string
	gameType model.GameType
	number   string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exposures:   make(map[exposureKey]*model.ExposureRecord),
		settlements: make(map[string]*model.DrawSettlement),
	}
}

// --- Capital ledger ---

func (s *MemoryStore) CreateLedger(_ context.Context, led *model.CapitalLedger, initial *model.CapitalTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger != nil {
		return ErrLedgerExists
	}
	copied := *led
	s.ledger = &copied
	s.txns = append(s.txns, *initial)
	return nil
}

func (s *MemoryStore) GetLedger(_ context.Context) (*model.CapitalLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return nil, ErrLedgerNotFound
	}
	copied := *s.ledger
	return &copied, nil
}

// memLedgerTx buffers writes until the enclosing UpdateLedger call returns
// successfully, mirroring commit/rollback behavior.
type memLedgerTx struct {
	store       *MemoryStore
	ledger      *model.CapitalLedger
	txns        []model.CapitalTransaction
	settlements []model.DrawSettlement
}

func (t *memLedgerTx) PutLedger(_ context.Context, led *model.CapitalLedger) error {
	copied := *led
	t.ledger = &copied
	return nil
}

func (t *memLedgerTx) AppendTransaction(_ context.Context, txn *model.CapitalTransaction) error {
	t.txns = append(t.txns, *txn)
	return nil
}

func (t *memLedgerTx) GetSettlement(_ context.Context, drawID string) (*model.DrawSettlement, error) {
	st, ok := t.store.settlements[drawID]
	if !ok {
		return nil, ErrSettlementNotFound
	}
	copied := *st
	return &copied, nil
}

func (t *memLedgerTx) PutSettlement(_ context.Context, st *model.DrawSettlement) error {
	t.settlements = append(t.settlements, *st)
	return nil
}

func (s *MemoryStore) UpdateLedger(ctx context.Context, fn func(ctx context.Context, tx LedgerTx, led *model.CapitalLedger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return ErrLedgerNotFound
	}

	working := *s.ledger
	tx := &memLedgerTx{store: s}

	if err := fn(ctx, tx, &working); err != nil {
		return err // nothing buffered is applied
	}

	if tx.ledger != nil {
		s.ledger = tx.ledger
	}
	s.txns = append(s.txns, tx.txns...)
	for i := range tx.settlements {
		st := tx.settlements[i]
		s.settlements[st.DrawID] = &st
	}
	return nil
}

// --- Exposure records ---

func (s *MemoryStore) GetExposure(_ context.Context, drawID string, g model.GameType, number string) (*model.ExposureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.exposures[exposureKey{drawID, g, number}]
	if !ok {
		return nil, ErrExposureNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *MemoryStore) RegisterExposure(_ context.Context, drawID string, g model.GameType, number string,
	amount, payout, limit money.Cents) (*model.ExposureRecord, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	key := exposureKey{drawID, g, number}
	rec, ok := s.exposures[key]
	if !ok {
		if amount > limit {
			return nil, ErrLimitExhausted
		}
		rec = &model.ExposureRecord{
			DrawID:          drawID,
			GameType:        g,
			Number:          number,
			TotalAmount:     amount,
			LimitSnapshot:   limit,
			PotentialPayout: payout,
			BetsCount:       1,
			IsSoldOut:       amount >= limit,
			UpdatedAt:       time.Now().UTC(),
		}
		s.exposures[key] = rec
		copied := *rec
		return &copied, nil
	}

	// Guard against the record's own limit snapshot, like the SQL upsert.
	if rec.TotalAmount+amount > rec.LimitSnapshot {
		return nil, ErrLimitExhausted
	}
	rec.TotalAmount += amount
	rec.PotentialPayout += payout
	rec.BetsCount++
	rec.IsSoldOut = rec.TotalAmount >= rec.LimitSnapshot
	rec.UpdatedAt = time.Now().UTC()

	copied := *rec
	return &copied, nil
}

func (s *MemoryStore) ListDrawExposures(_ context.Context, drawID string) ([]model.ExposureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []model.ExposureRecord
	for key, rec := range s.exposures {
		if key.drawID == drawID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].GameType != records[j].GameType {
			return records[i].GameType < records[j].GameType
		}
		return records[i].Number < records[j].Number
	})
	return records, nil
}

func (s *MemoryStore) SummarizeDrawExposure(ctx context.Context, drawID string) ([]model.GameTypeExposure, error) {
	records, err := s.ListDrawExposures(ctx, drawID)
	if err != nil {
		return nil, err
	}

	agg := make(map[model.GameType]*model.GameTypeExposure)
	for _, rec := range records {
		sum, ok := agg[rec.GameType]
		if !ok {
			sum = &model.GameTypeExposure{GameType: rec.GameType}
			agg[rec.GameType] = sum
		}
		sum.NumbersPlayed++
		if rec.IsSoldOut {
			sum.SoldOutNumbers++
		}
		sum.TotalStaked += rec.TotalAmount
		sum.PotentialPayout += rec.PotentialPayout
		sum.BetsCount += rec.BetsCount
	}

	summaries := make([]model.GameTypeExposure, 0, len(agg))
	for _, g := range model.GameTypes() {
		if sum, ok := agg[g]; ok {
			summaries = append(summaries, *sum)
		}
	}
	return summaries, nil
}

// --- Settlement & audit history ---

func (s *MemoryStore) GetSettlement(_ context.Context, drawID string) (*model.DrawSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settlements[drawID]
	if !ok {
		return nil, ErrSettlementNotFound
	}
	copied := *st
	return &copied, nil
}

func (s *MemoryStore) ListSettlements(_ context.Context, limit int) ([]model.DrawSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlements := make([]model.DrawSettlement, 0, len(s.settlements))
	for _, st := range s.settlements {
		settlements = append(settlements, *st)
	}
	sort.Slice(settlements, func(i, j int) bool {
		return settlements[i].CreatedAt.After(settlements[j].CreatedAt)
	})
	if limit > 0 && len(settlements) > limit {
		settlements = settlements[:limit]
	}
	return settlements, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, limit int) ([]model.CapitalTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txns := make([]model.CapitalTransaction, len(s.txns))
	copy(txns, s.txns)
	// Stored oldest-first; return newest-first like the SQL query.
	for i, j := 0, len(txns)-1; i < j; i, j = i+1, j-1 {
		txns[i], txns[j] = txns[j], txns[i]
	}
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}
