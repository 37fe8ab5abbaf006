package settle

import (
	"errors"
	"testing"

	"github.com/numgame/risk-engine/internal/money"
)

func TestDistributionFor(t *testing.T) {
	if DistributionFor(true) != WinnerDistribution {
		t.Error("expected winner distribution for hasWinner=true")
	}
	if DistributionFor(false) != NoWinnerDistribution {
		t.Error("expected no-winner distribution for hasWinner=false")
	}
}

func TestSplit_WinnerTable(t *testing.T) {
	pool := money.FromUnits(100)

	s, err := WinnerDistribution.Split(pool)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if s.Fee != money.FromUnits(5) {
		t.Errorf("fee = %s, want 5", s.Fee)
	}
	if s.ToReserve != money.FromUnits(65) {
		t.Errorf("reserve share = %s, want 65", s.ToReserve)
	}
	if s.ToBankroll != money.FromUnits(30) {
		t.Errorf("bankroll share = %s, want 30", s.ToBankroll)
	}
}

func TestSplit_NoWinnerTable(t *testing.T) {
	pool := money.FromUnits(100)

	s, err := NoWinnerDistribution.Split(pool)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if s.Fee != money.FromUnits(5) {
		t.Errorf("fee = %s, want 5", s.Fee)
	}
	if s.ToReserve != money.FromUnits(45) {
		t.Errorf("reserve share = %s, want 45", s.ToReserve)
	}
	if s.ToBankroll != money.FromUnits(50) {
		t.Errorf("bankroll share = %s, want 50", s.ToBankroll)
	}
}

// The three shares must reassemble the pool to the exact cent, whatever the
// pool size. Rounding remainders land in the reserve.
func TestSplit_SharesAlwaysSumToPool(t *testing.T) {
	for _, d := range []Distribution{WinnerDistribution, NoWinnerDistribution} {
		for pool := money.Cents(0); pool < 10000; pool++ {
			s, err := d.Split(pool)
			if err != nil {
				t.Fatalf("Split(%d): %v", pool, err)
			}
			if got := s.Fee + s.ToReserve + s.ToBankroll; got != pool {
				t.Fatalf("shares sum to %d, want %d (dist %+v)", got, pool, d)
			}
		}
	}
}

func TestSplit_RemainderFoldsIntoReserve(t *testing.T) {
	// 1 cent: 5% and 30% both floor to zero, so the reserve takes it all.
	s, err := WinnerDistribution.Split(1)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if s.Fee != 0 || s.ToBankroll != 0 || s.ToReserve != 1 {
		t.Errorf("1-cent split = %+v, want all in reserve", s)
	}
}

func TestSplit_UnbalancedDistribution(t *testing.T) {
	bad := Distribution{FeeBP: 500, ReserveBP: 6500, BankrollBP: 4000}
	if _, err := bad.Split(money.FromUnits(100)); !errors.Is(err, ErrUnbalancedDistribution) {
		t.Errorf("expected ErrUnbalancedDistribution, got %v", err)
	}
}
