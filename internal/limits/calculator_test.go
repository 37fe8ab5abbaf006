package limits

import (
	"errors"
	"testing"

	"github.com/numgame/risk-engine/internal/money"
)

func TestNewCalculator_InvalidBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max money.Cents
	}{
		{"zero min", 0, 1000},
		{"negative min", -100, 1000},
		{"inverted", 1000, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCalculator(tt.min, tt.max); !errors.Is(err, ErrInvalidBounds) {
				t.Errorf("NewCalculator(%d, %d): expected ErrInvalidBounds, got %v", tt.min, tt.max, err)
			}
		})
	}
}

func TestNewLimit(t *testing.T) {
	c := NewDefaultCalculator()

	tests := []struct {
		name     string
		bankroll money.Cents
		reserve  money.Cents
		want     money.Cents
	}{
		// Empty capital clamps to the floor: 2.00.
		{"empty", 0, 0, 200},
		// reserve 6000.00 -> 2.00, bankroll 2500.00 -> 5.00.
		{"mixed funds", money.FromUnits(2500), money.FromUnits(6000), 700},
		// Reserve-only contribution: 300000.00 / 3000 = 100.00.
		{"reserve only", 0, money.FromUnits(300000), money.FromUnits(100)},
		// Bankroll-only contribution: 5000.00 / 500 = 10.00.
		{"bankroll only", money.FromUnits(5000), 0, money.FromUnits(10)},
		// Just under the floor stays at the floor.
		{"below floor", money.FromUnits(5), money.FromUnits(30), 200},
		// Massive capital clamps to the ceiling: 1000.00.
		{"above ceiling", money.FromUnits(10_000_000), money.FromUnits(10_000_000), money.FromUnits(1000)},
		// Division floors to the cent.
		{"floored", 0, 3001 * 2, 200}, // 6002/3000 = 2 cents, below floor
		// Negative inputs never escape the bounds.
		{"negative inputs", -500, -500, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.NewLimit(tt.bankroll, tt.reserve); got != tt.want {
				t.Errorf("NewLimit(%d, %d) = %d, want %d", tt.bankroll, tt.reserve, got, tt.want)
			}
		})
	}
}

func TestNewLimit_FlooringStaysExact(t *testing.T) {
	c := NewDefaultCalculator()

	// 9999.99 reserve / 3000 = 333 cents (floor), 999.99 bankroll / 500 = 199.
	got := c.NewLimit(99999, 999999)
	if got != 532 {
		t.Errorf("expected 5.32, got %s", got)
	}
}

// The limit must never shrink when capital grows.
func TestNewLimit_Monotonic(t *testing.T) {
	c := NewDefaultCalculator()

	steps := []money.Cents{0, 1, 499, 500, 2999, 3000, 100000, 50000000}
	for _, bank := range steps {
		var prev money.Cents
		for i, res := range steps {
			got := c.NewLimit(bank, res)
			if i > 0 && got < prev {
				t.Fatalf("limit shrank as reserve grew: bankroll=%d reserve=%d limit=%d prev=%d", bank, res, got, prev)
			}
			prev = got
		}
	}
	for _, res := range steps {
		var prev money.Cents
		for i, bank := range steps {
			got := c.NewLimit(bank, res)
			if i > 0 && got < prev {
				t.Fatalf("limit shrank as bankroll grew: bankroll=%d reserve=%d limit=%d prev=%d", bank, res, got, prev)
			}
			prev = got
		}
	}
}

func TestCalculator_Bounds(t *testing.T) {
	c, err := NewCalculator(500, 25000)
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	if c.Min() != 500 || c.Max() != 25000 {
		t.Errorf("bounds = [%d, %d], want [500, 25000]", c.Min(), c.Max())
	}
	if got := c.NewLimit(0, 0); got != 500 {
		t.Errorf("custom floor not applied: got %d", got)
	}
	if got := c.NewLimit(money.FromUnits(1_000_000), 0); got != 25000 {
		t.Errorf("custom ceiling not applied: got %d", got)
	}
}
