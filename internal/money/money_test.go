package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromDecimal_WholeAndFractional(t *testing.T) {
	tests := []struct {
		in   string
		want Cents
	}{
		{"0", 0},
		{"1", 100},
		{"12.34", 1234},
		{"0.01", 1},
		{"-5.50", -550},
		{"1000", 100000},
	}
	for _, tt := range tests {
		d, _ := decimal.NewFromString(tt.in)
		got, err := FromDecimal(d)
		if err != nil {
			t.Fatalf("FromDecimal(%s): unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("FromDecimal(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFromDecimal_RejectsSubCent(t *testing.T) {
	d, _ := decimal.NewFromString("0.001")
	_, err := FromDecimal(d)
	if !errors.Is(err, ErrSubCent) {
		t.Errorf("expected ErrSubCent for 0.001, got %v", err)
	}
}

func TestCents_Decimal_RoundTrip(t *testing.T) {
	c := Cents(1234)
	if c.Decimal().String() != "12.34" {
		t.Errorf("expected 12.34, got %s", c.Decimal())
	}
	back, err := FromDecimal(c.Decimal())
	if err != nil || back != c {
		t.Errorf("round trip failed: %d -> %s -> %d (%v)", c, c.Decimal(), back, err)
	}
}

// Summing one hundred one-cent stakes must yield exactly 1.00 — the reason
// the engine runs on integer minor units instead of floats.
func TestCents_HundredPenniesIsExactlyOne(t *testing.T) {
	penny, _ := FromDecimal(decimal.NewFromFloat(0.01))

	var total Cents
	for i := 0; i < 100; i++ {
		total += penny
	}

	if total != 100 {
		t.Fatalf("expected 100 cents, got %d", total)
	}
	if !total.Decimal().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected exactly 1, got %s", total.Decimal())
	}
}

func TestCents_MulInt(t *testing.T) {
	stake := Cents(250) // 2.50
	if got := stake.MulInt(1000); got != 250000 {
		t.Errorf("2.50 x 1000 = %s, want 2500", got)
	}
}

func TestCents_ShareBP(t *testing.T) {
	pool := Cents(10000) // 100.00
	tests := []struct {
		bp   int64
		want Cents
	}{
		{500, 500},    // 5%
		{6500, 6500},  // 65%
		{3000, 3000},  // 30%
		{10000, 10000},
		{0, 0},
	}
	for _, tt := range tests {
		if got := pool.ShareBP(tt.bp); got != tt.want {
			t.Errorf("ShareBP(%d) = %d, want %d", tt.bp, got, tt.want)
		}
	}

	// Floors, never rounds up.
	if got := Cents(1).ShareBP(500); got != 0 {
		t.Errorf("5%% of one cent should floor to 0, got %d", got)
	}
}

func TestCents_JSON(t *testing.T) {
	data, err := json.Marshal(Cents(1234))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"12.34"` {
		t.Errorf("expected \"12.34\", got %s", data)
	}

	var c Cents
	if err := json.Unmarshal([]byte(`"7.05"`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c != 705 {
		t.Errorf("expected 705 cents, got %d", c)
	}

	if err := json.Unmarshal([]byte(`"0.001"`), &c); err == nil {
		t.Error("expected error for sub-cent JSON amount")
	}
}
