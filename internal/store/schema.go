package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the engine's tables. Idempotent; executed at startup.
// Balance non-negativity is enforced at the database layer as well: a
// settlement or adjustment that would drive a fund negative cannot commit.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS capital_ledger (
		id                      INT PRIMARY KEY CHECK (id = 1),
		bankroll_cents          BIGINT NOT NULL CHECK (bankroll_cents >= 0),
		reserve_cents           BIGINT NOT NULL CHECK (reserve_cents >= 0),
		limit_cents             BIGINT NOT NULL CHECK (limit_cents > 0),
		total_staked_cents      BIGINT NOT NULL DEFAULT 0,
		total_prizes_paid_cents BIGINT NOT NULL DEFAULT 0,
		total_fees_cents        BIGINT NOT NULL DEFAULT 0,
		created_at              TIMESTAMPTZ NOT NULL,
		updated_at              TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exposure_records (
		draw_id                TEXT NOT NULL,
		game_type              TEXT NOT NULL,
		number                 TEXT NOT NULL,
		total_amount_cents     BIGINT NOT NULL CHECK (total_amount_cents > 0),
		limit_cents            BIGINT NOT NULL,
		potential_payout_cents BIGINT NOT NULL,
		bets_count             BIGINT NOT NULL,
		is_sold_out            BOOLEAN NOT NULL,
		updated_at             TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (draw_id, game_type, number)
	)`,
	`CREATE TABLE IF NOT EXISTS capital_transactions (
		id                   UUID PRIMARY KEY,
		type                 TEXT NOT NULL,
		fund                 TEXT NOT NULL,
		amount_cents         BIGINT NOT NULL,
		balance_before_cents BIGINT NOT NULL,
		balance_after_cents  BIGINT NOT NULL,
		reason               TEXT NOT NULL,
		actor_id             TEXT NOT NULL DEFAULT '',
		draw_id              TEXT NOT NULL DEFAULT '',
		created_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS capital_transactions_created_at_idx
		ON capital_transactions (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS draw_settlements (
		draw_id             TEXT PRIMARY KEY,
		total_pool_cents    BIGINT NOT NULL,
		prizes_paid_cents   BIGINT NOT NULL,
		has_winner          BOOLEAN NOT NULL,
		results             JSONB NOT NULL DEFAULT '[]',
		fee_cents           BIGINT NOT NULL,
		to_reserve_cents    BIGINT NOT NULL,
		to_bankroll_cents   BIGINT NOT NULL,
		new_bankroll_cents  BIGINT NOT NULL,
		new_reserve_cents   BIGINT NOT NULL,
		new_limit_cents     BIGINT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
