package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/numgame/risk-engine/internal/model"
	"github.com/numgame/risk-engine/internal/money"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as BIGINT cents for exact arithmetic.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// --- Capital ledger ---

func (s *PostgresStore) CreateLedger(ctx context.Context, led *model.CapitalLedger, initial *model.CapitalTransaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create ledger: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO capital_ledger
		   (id, bankroll_cents, reserve_cents, limit_cents,
		    total_staked_cents, total_prizes_paid_cents, total_fees_cents,
		    created_at, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)`,
		int64(led.Bankroll), int64(led.Reserve), int64(led.LimitPerNumber),
		int64(led.TotalStaked), int64(led.TotalPrizesPaid), int64(led.TotalFees),
		led.CreatedAt, led.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrLedgerExists
		}
		return fmt.Errorf("create ledger: %w", err)
	}

	if err := insertTransaction(ctx, tx, initial); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const ledgerColumns = `bankroll_cents, reserve_cents, limit_cents,
	total_staked_cents, total_prizes_paid_cents, total_fees_cents,
	created_at, updated_at`

func scanLedger(row pgx.Row) (*model.CapitalLedger, error) {
	var led model.CapitalLedger
	var bankroll, reserve, limit, staked, prizes, fees int64

	err := row.Scan(&bankroll, &reserve, &limit, &staked, &prizes, &fees,
		&led.CreatedAt, &led.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("scan ledger: %w", err)
	}

	led.Bankroll = money.Cents(bankroll)
	led.Reserve = money.Cents(reserve)
	led.LimitPerNumber = money.Cents(limit)
	led.TotalStaked = money.Cents(staked)
	led.TotalPrizesPaid = money.Cents(prizes)
	led.TotalFees = money.Cents(fees)
	return &led, nil
}

func (s *PostgresStore) GetLedger(ctx context.Context) (*model.CapitalLedger, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM capital_ledger WHERE id = 1`)
	return scanLedger(row)
}

// pgLedgerTx implements LedgerTx on an open pgx transaction holding the
// capital_ledger row lock.
type pgLedgerTx struct {
	tx pgx.Tx
}

func (t *pgLedgerTx) PutLedger(ctx context.Context, led *model.CapitalLedger) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE capital_ledger SET
		   bankroll_cents = $1, reserve_cents = $2, limit_cents = $3,
		   total_staked_cents = $4, total_prizes_paid_cents = $5,
		   total_fees_cents = $6, updated_at = $7
		 WHERE id = 1`,
		int64(led.Bankroll), int64(led.Reserve), int64(led.LimitPerNumber),
		int64(led.TotalStaked), int64(led.TotalPrizesPaid), int64(led.TotalFees),
		led.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put ledger: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, txn *model.CapitalTransaction) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO capital_transactions
		   (id, type, fund, amount_cents, balance_before_cents,
		    balance_after_cents, reason, actor_id, draw_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		txn.ID, string(txn.Type), string(txn.Fund), int64(txn.Amount),
		int64(txn.BalanceBefore), int64(txn.BalanceAfter),
		txn.Reason, txn.ActorID, txn.DrawID, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (t *pgLedgerTx) AppendTransaction(ctx context.Context, txn *model.CapitalTransaction) error {
	return insertTransaction(ctx, t.tx, txn)
}

const settlementColumns = `draw_id, total_pool_cents, prizes_paid_cents, has_winner,
	results, fee_cents, to_reserve_cents, to_bankroll_cents,
	new_bankroll_cents, new_reserve_cents, new_limit_cents, created_at`

func scanSettlement(row pgx.Row) (*model.DrawSettlement, error) {
	var st model.DrawSettlement
	var pool, prizes, fee, toReserve, toBankroll, newBankroll, newReserve, newLimit int64
	var results []byte

	err := row.Scan(&st.DrawID, &pool, &prizes, &st.HasWinner, &results,
		&fee, &toReserve, &toBankroll,
		&newBankroll, &newReserve, &newLimit, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("scan settlement: %w", err)
	}

	if len(results) > 0 {
		if err := json.Unmarshal(results, &st.Results); err != nil {
			return nil, fmt.Errorf("decode settlement results: %w", err)
		}
	}
	st.TotalPool = money.Cents(pool)
	st.PrizesPaid = money.Cents(prizes)
	st.FeeShare = money.Cents(fee)
	st.ToReserve = money.Cents(toReserve)
	st.ToBankroll = money.Cents(toBankroll)
	st.NewBankroll = money.Cents(newBankroll)
	st.NewReserve = money.Cents(newReserve)
	st.NewLimit = money.Cents(newLimit)
	return &st, nil
}

func (t *pgLedgerTx) GetSettlement(ctx context.Context, drawID string) (*model.DrawSettlement, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM draw_settlements WHERE draw_id = $1`, drawID)
	return scanSettlement(row)
}

func (t *pgLedgerTx) PutSettlement(ctx context.Context, st *model.DrawSettlement) error {
	results, err := json.Marshal(st.Results)
	if err != nil {
		return fmt.Errorf("encode settlement results: %w", err)
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO draw_settlements
		   (draw_id, total_pool_cents, prizes_paid_cents, has_winner, results,
		    fee_cents, to_reserve_cents, to_bankroll_cents,
		    new_bankroll_cents, new_reserve_cents, new_limit_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (draw_id) DO UPDATE SET
		   total_pool_cents = EXCLUDED.total_pool_cents,
		   prizes_paid_cents = EXCLUDED.prizes_paid_cents,
		   has_winner = EXCLUDED.has_winner,
		   results = EXCLUDED.results,
		   fee_cents = EXCLUDED.fee_cents,
		   to_reserve_cents = EXCLUDED.to_reserve_cents,
		   to_bankroll_cents = EXCLUDED.to_bankroll_cents,
		   new_bankroll_cents = EXCLUDED.new_bankroll_cents,
		   new_reserve_cents = EXCLUDED.new_reserve_cents,
		   new_limit_cents = EXCLUDED.new_limit_cents`,
		st.DrawID, int64(st.TotalPool), int64(st.PrizesPaid), st.HasWinner, results,
		int64(st.FeeShare), int64(st.ToReserve), int64(st.ToBankroll),
		int64(st.NewBankroll), int64(st.NewReserve), int64(st.NewLimit), st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put settlement: %w", err)
	}
	return nil
}

// UpdateLedger locks the capital_ledger row with SELECT ... FOR UPDATE for
// the duration of one transaction, so concurrent settlements and manual
// adjustments serialize instead of lost-updating each other.
func (s *PostgresStore) UpdateLedger(ctx context.Context, fn func(ctx context.Context, tx LedgerTx, led *model.CapitalLedger) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("update ledger: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	led, err := scanLedger(tx.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM capital_ledger WHERE id = 1 FOR UPDATE`))
	if err != nil {
		return err
	}

	if err := fn(ctx, &pgLedgerTx{tx: tx}, led); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Exposure records ---

const exposureColumns = `draw_id, game_type, number, total_amount_cents,
	limit_cents, potential_payout_cents, bets_count, is_sold_out, updated_at`

func scanExposure(row pgx.Row) (*model.ExposureRecord, error) {
	var rec model.ExposureRecord
	var total, limit, payout int64
	var gameType string

	err := row.Scan(&rec.DrawID, &gameType, &rec.Number, &total,
		&limit, &payout, &rec.BetsCount, &rec.IsSoldOut, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rec.GameType = model.GameType(gameType)
	rec.TotalAmount = money.Cents(total)
	rec.LimitSnapshot = money.Cents(limit)
	rec.PotentialPayout = money.Cents(payout)
	return &rec, nil
}

func (s *PostgresStore) GetExposure(ctx context.Context, drawID string, g model.GameType, number string) (*model.ExposureRecord, error) {
	rec, err := scanExposure(s.pool.QueryRow(ctx,
		`SELECT `+exposureColumns+`
		 FROM exposure_records
		 WHERE draw_id = $1 AND game_type = $2 AND number = $3`,
		drawID, string(g), number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExposureNotFound
		}
		return nil, fmt.Errorf("get exposure: %w", err)
	}
	return rec, nil
}

// RegisterExposure is a single atomic insert-or-add. The limit guard is
// evaluated by the database against the row's current state, not against
// values read earlier in the request, so two concurrent bets can never both
// consume the same remaining headroom. The boundary is inclusive: a stake
// that fills the limit exactly is admitted and marks the number sold out.
func (s *PostgresStore) RegisterExposure(ctx context.Context, drawID string, g model.GameType, number string,
	amount, payout, limit money.Cents) (*model.ExposureRecord, error) {

	rec, err := scanExposure(s.pool.QueryRow(ctx,
		`INSERT INTO exposure_records
		   (draw_id, game_type, number, total_amount_cents, limit_cents,
		    potential_payout_cents, bets_count, is_sold_out, updated_at)
		 SELECT $1::TEXT, $2::TEXT, $3::TEXT, $4::BIGINT, $5::BIGINT,
		        $6::BIGINT, 1, $4::BIGINT >= $5::BIGINT, now()
		 WHERE $4::BIGINT <= $5::BIGINT
		 ON CONFLICT (draw_id, game_type, number) DO UPDATE SET
		   total_amount_cents     = exposure_records.total_amount_cents + EXCLUDED.total_amount_cents,
		   potential_payout_cents = exposure_records.potential_payout_cents + EXCLUDED.potential_payout_cents,
		   bets_count             = exposure_records.bets_count + 1,
		   is_sold_out            = exposure_records.total_amount_cents + EXCLUDED.total_amount_cents >= exposure_records.limit_cents,
		   updated_at             = now()
		 WHERE exposure_records.total_amount_cents + EXCLUDED.total_amount_cents <= exposure_records.limit_cents
		 RETURNING `+exposureColumns,
		drawID, string(g), number, int64(amount), int64(limit), int64(payout)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Guard rejected the write: no headroom left for this stake.
			return nil, ErrLimitExhausted
		}
		return nil, fmt.Errorf("register exposure: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListDrawExposures(ctx context.Context, drawID string) ([]model.ExposureRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+exposureColumns+`
		 FROM exposure_records
		 WHERE draw_id = $1
		 ORDER BY game_type, number`, drawID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ExposureRecord
	for rows.Next() {
		rec, err := scanExposure(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) SummarizeDrawExposure(ctx context.Context, drawID string) ([]model.GameTypeExposure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT game_type,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE is_sold_out),
		        COALESCE(SUM(total_amount_cents), 0),
		        COALESCE(SUM(potential_payout_cents), 0),
		        COALESCE(SUM(bets_count), 0)
		 FROM exposure_records
		 WHERE draw_id = $1
		 GROUP BY game_type
		 ORDER BY game_type`, drawID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.GameTypeExposure
	for rows.Next() {
		var sum model.GameTypeExposure
		var gameType string
		var staked, payout int64

		if err := rows.Scan(&gameType, &sum.NumbersPlayed, &sum.SoldOutNumbers,
			&staked, &payout, &sum.BetsCount); err != nil {
			return nil, err
		}
		sum.GameType = model.GameType(gameType)
		sum.TotalStaked = money.Cents(staked)
		sum.PotentialPayout = money.Cents(payout)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// --- Settlement & audit history ---

func (s *PostgresStore) GetSettlement(ctx context.Context, drawID string) (*model.DrawSettlement, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM draw_settlements WHERE draw_id = $1`, drawID)
	return scanSettlement(row)
}

func (s *PostgresStore) ListSettlements(ctx context.Context, limit int) ([]model.DrawSettlement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+settlementColumns+`
		 FROM draw_settlements
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []model.DrawSettlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, *st)
	}
	return settlements, rows.Err()
}

func (s *PostgresStore) ListTransactions(ctx context.Context, limit int) ([]model.CapitalTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, fund, amount_cents, balance_before_cents,
		        balance_after_cents, reason, actor_id, draw_id, created_at
		 FROM capital_transactions
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []model.CapitalTransaction
	for rows.Next() {
		var txn model.CapitalTransaction
		var txType, fund string
		var amount, before, after int64

		if err := rows.Scan(&txn.ID, &txType, &fund, &amount, &before, &after,
			&txn.Reason, &txn.ActorID, &txn.DrawID, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txn.Type = model.TransactionType(txType)
		txn.Fund = model.Fund(fund)
		txn.Amount = money.Cents(amount)
		txn.BalanceBefore = money.Cents(before)
		txn.BalanceAfter = money.Cents(after)
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
