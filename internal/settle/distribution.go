// Package settle implements the atomic post-draw redistribution of the
// staked pool into operator fee, prize reserve, and growth bankroll, and
// the recalculation of the next draw's per-number limit.
package settle

import (
	"errors"
	"fmt"

	"github.com/numgame/risk-engine/internal/money"
)

// ErrUnbalancedDistribution is returned when a distribution table's shares
// do not sum to 100%. This is a configuration defect, never a runtime
// condition.
var ErrUnbalancedDistribution = errors.New("settle: distribution shares must sum to 10000 basis points")

// Distribution is a pool split expressed in basis points (10000 = 100%).
type Distribution struct {
	FeeBP      int64
	ReserveBP  int64
	BankrollBP int64
}

// Pool distribution tables. When a prize was paid, the reserve takes the
// larger share to restock what the payout consumed; when nobody won, the
// surplus leans toward the bankroll.
var (
	WinnerDistribution   = Distribution{FeeBP: 500, ReserveBP: 6500, BankrollBP: 3000}
	NoWinnerDistribution = Distribution{FeeBP: 500, ReserveBP: 4500, BankrollBP: 5000}
)

// DistributionFor selects the split table for a draw outcome.
func DistributionFor(hasWinner bool) Distribution {
	if hasWinner {
		return WinnerDistribution
	}
	return NoWinnerDistribution
}

// Split is a pool divided into its three destinations. By construction
// Fee + ToReserve + ToBankroll equals the pool exactly.
type Split struct {
	Fee        money.Cents
	ToReserve  money.Cents
	ToBankroll money.Cents
}

// Split divides the pool per the distribution. Fee and bankroll shares are
// floored to the cent; the rounding remainder folds into the reserve share
// so the three parts always reassemble the pool to the exact cent.
func (d Distribution) Split(pool money.Cents) (Split, error) {
	if d.FeeBP+d.ReserveBP+d.BankrollBP != 10000 {
		return Split{}, fmt.Errorf("%w: got %d", ErrUnbalancedDistribution,
			d.FeeBP+d.ReserveBP+d.BankrollBP)
	}

	fee := pool.ShareBP(d.FeeBP)
	bankroll := pool.ShareBP(d.BankrollBP)
	reserve := pool - fee - bankroll

	return Split{Fee: fee, ToReserve: reserve, ToBankroll: bankroll}, nil
}
