// Package model defines the core domain types shared across the risk engine.
// All monetary values are integer cents (money.Cents) — never float64 for money.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/numgame/risk-engine/internal/money"
)

// GameType identifies a sub-game of a draw. Each game type has a fixed
// payout multiplier and a fixed winning-number length.
type GameType string

// Supported game types.
const (
	GameTwoDigits   GameType = "two_digits"   // last 2 digits, pays 70x
	GameThreeDigits GameType = "three_digits" // last 3 digits, pays 600x
	GameFourDigits  GameType = "four_digits"  // exact 4 digits, pays 1000x
)

// multipliers maps each game type to its fixed payout multiplier.
// The highest multiplier (1000x) anchors the reserve/3000 term of the
// betting-limit formula: the reserve covers one worst-case payout with a
// 3x margin.
var multipliers = map[GameType]int64{
	GameTwoDigits:   70,
	GameThreeDigits: 600,
	GameFourDigits:  1000,
}

// numberLens maps each game type to the required digit count of its numbers.
var numberLens = map[GameType]int{
	GameTwoDigits:   2,
	GameThreeDigits: 3,
	GameFourDigits:  4,
}

var digitsRegex = regexp.MustCompile(`^[0-9]+$`)

var (
	ErrInvalidGameType = errors.New("model: unsupported game type")
	ErrInvalidNumber   = errors.New("model: invalid number for game type")
)

// Valid reports whether the game type is one of the supported sub-games.
func (g GameType) Valid() bool {
	_, ok := multipliers[g]
	return ok
}

// Multiplier returns the fixed payout multiplier for the game type.
// Panics on unknown game types; callers must validate first.
func (g GameType) Multiplier() int64 {
	m, ok := multipliers[g]
	if !ok {
		panic("model: multiplier lookup on invalid game type " + string(g))
	}
	return m
}

// GameTypes returns all supported game types in a stable order.
func GameTypes() []GameType {
	return []GameType{GameTwoDigits, GameThreeDigits, GameFourDigits}
}

// ValidateNumber checks that number is a digit string of the exact length
// the game type requires (e.g. "07" for two_digits, "0942" for four_digits).
func ValidateNumber(g GameType, number string) error {
	n, ok := numberLens[g]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidGameType, g)
	}
	if len(number) != n || !digitsRegex.MatchString(number) {
		return fmt.Errorf("%w: %q must be %d digits", ErrInvalidNumber, number, n)
	}
	return nil
}

// CapitalLedger is the single persistent record of operator capital.
// One row per deployment; mutated only under an exclusive row lock.
type CapitalLedger struct {
	Bankroll        money.Cents `json:"bankroll" db:"bankroll_cents"`
	Reserve         money.Cents `json:"reserve" db:"reserve_cents"`
	LimitPerNumber  money.Cents `json:"limit_per_number" db:"limit_cents"`
	TotalStaked     money.Cents `json:"total_staked" db:"total_staked_cents"`
	TotalPrizesPaid money.Cents `json:"total_prizes_paid" db:"total_prizes_paid_cents"`
	TotalFees       money.Cents `json:"total_fees" db:"total_fees_cents"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// ExposureRecord is the running stake total for one (draw, gameType, number)
// key. Read-only once the draw is resolved; retained for audit.
type ExposureRecord struct {
	DrawID          string      `json:"draw_id" db:"draw_id"`
	GameType        GameType    `json:"game_type" db:"game_type"`
	Number          string      `json:"number" db:"number"`
	TotalAmount     money.Cents `json:"total_amount" db:"total_amount_cents"`
	LimitSnapshot   money.Cents `json:"limit_snapshot" db:"limit_cents"`
	PotentialPayout money.Cents `json:"potential_payout" db:"potential_payout_cents"`
	BetsCount       int64       `json:"bets_count" db:"bets_count"`
	IsSoldOut       bool        `json:"is_sold_out" db:"is_sold_out"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// GameTypeExposure aggregates a draw's exposure per game type, for admin
// monitoring.
type GameTypeExposure struct {
	GameType        GameType    `json:"game_type"`
	NumbersPlayed   int64       `json:"numbers_played"`
	SoldOutNumbers  int64       `json:"sold_out_numbers"`
	TotalStaked     money.Cents `json:"total_staked"`
	PotentialPayout money.Cents `json:"potential_payout"`
	BetsCount       int64       `json:"bets_count"`
}

// TransactionType classifies a capital ledger movement.
type TransactionType string

const (
	TxInitialCapital   TransactionType = "initial_capital"
	TxFeeCollection    TransactionType = "fee_collection"
	TxReserveTopUp     TransactionType = "reserve_topup"
	TxBankrollTopUp    TransactionType = "bankroll_topup"
	TxPrizePayout      TransactionType = "prize_payout"
	TxManualAdjustment TransactionType = "manual_adjustment"
)

// Fund names a capital bucket targeted by a transaction.
type Fund string

const (
	FundReserve  Fund = "reserve"
	FundBankroll Fund = "bankroll"
	FundFee      Fund = "fee" // lifetime fee total, not a spendable balance
)

// ValidAdjustmentFund reports whether the fund can be targeted by a manual
// adjustment.
func ValidAdjustmentFund(f Fund) bool {
	return f == FundReserve || f == FundBankroll
}

// CapitalTransaction is an append-only audit entry for every CapitalLedger
// mutation. Never updated or deleted.
type CapitalTransaction struct {
	ID            string          `json:"id" db:"id"`
	Type          TransactionType `json:"type" db:"type"`
	Fund          Fund            `json:"fund" db:"fund"`
	Amount        money.Cents     `json:"amount" db:"amount_cents"` // signed
	BalanceBefore money.Cents     `json:"balance_before" db:"balance_before_cents"`
	BalanceAfter  money.Cents     `json:"balance_after" db:"balance_after_cents"`
	Reason        string          `json:"reason" db:"reason"`
	ActorID       string          `json:"actor_id,omitempty" db:"actor_id"`
	DrawID        string          `json:"draw_id,omitempty" db:"draw_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// GameResult is the resolved outcome of one game type within a draw,
// supplied by the draw-resolution flow after winners are determined.
type GameResult struct {
	GameType      GameType    `json:"game_type"`
	WinningNumber string      `json:"winning_number"`
	WinnerCount   int64       `json:"winner_count"`
	PrizePaid     money.Cents `json:"prize_paid"`
}

// DrawSettlement is the durable proof of how one draw's pool was
// redistributed. Exactly one row per draw; immutable after creation except
// for the idempotent upsert of the settlement call itself.
type DrawSettlement struct {
	DrawID      string       `json:"draw_id" db:"draw_id"`
	TotalPool   money.Cents  `json:"total_pool" db:"total_pool_cents"`
	PrizesPaid  money.Cents  `json:"prizes_paid" db:"prizes_paid_cents"`
	HasWinner   bool         `json:"has_winner" db:"has_winner"`
	Results     []GameResult `json:"results" db:"results"`
	FeeShare    money.Cents  `json:"fee_share" db:"fee_cents"`
	ToReserve   money.Cents  `json:"to_reserve" db:"to_reserve_cents"`
	ToBankroll  money.Cents  `json:"to_bankroll" db:"to_bankroll_cents"`
	NewBankroll money.Cents  `json:"new_bankroll" db:"new_bankroll_cents"`
	NewReserve  money.Cents  `json:"new_reserve" db:"new_reserve_cents"`
	NewLimit    money.Cents  `json:"new_limit" db:"new_limit_cents"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
