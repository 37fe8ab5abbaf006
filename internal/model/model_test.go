package model

import (
	"errors"
	"testing"
)

func TestGameType_Multiplier(t *testing.T) {
	tests := []struct {
		game GameType
		want int64
	}{
		{GameTwoDigits, 70},
		{GameThreeDigits, 600},
		{GameFourDigits, 1000},
	}
	for _, tt := range tests {
		if got := tt.game.Multiplier(); got != tt.want {
			t.Errorf("%s multiplier = %d, want %d", tt.game, got, tt.want)
		}
	}
}

func TestGameType_Valid(t *testing.T) {
	if !GameTwoDigits.Valid() {
		t.Error("two_digits should be valid")
	}
	if GameType("five_digits").Valid() {
		t.Error("five_digits should be invalid")
	}
}

func TestValidateNumber(t *testing.T) {
	tests := []struct {
		name    string
		game    GameType
		number  string
		wantErr error
	}{
		{"two digits ok", GameTwoDigits, "07", nil},
		{"three digits ok", GameThreeDigits, "000", nil},
		{"four digits ok", GameFourDigits, "0942", nil},
		{"too short", GameFourDigits, "942", ErrInvalidNumber},
		{"too long", GameTwoDigits, "123", ErrInvalidNumber},
		{"non-digit", GameTwoDigits, "4a", ErrInvalidNumber},
		{"negative sign", GameThreeDigits, "-42", ErrInvalidNumber},
		{"empty", GameTwoDigits, "", ErrInvalidNumber},
		{"unknown game", GameType("five_digits"), "12345", ErrInvalidGameType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNumber(tt.game, tt.number)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateNumber(%s, %q) = %v, want nil", tt.game, tt.number, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateNumber(%s, %q) = %v, want %v", tt.game, tt.number, err, tt.wantErr)
			}
		})
	}
}

func TestValidAdjustmentFund(t *testing.T) {
	if !ValidAdjustmentFund(FundReserve) || !ValidAdjustmentFund(FundBankroll) {
		t.Error("reserve and bankroll must be adjustable")
	}
	if ValidAdjustmentFund(FundFee) {
		t.Error("fee fund must not be adjustable")
	}
	if ValidAdjustmentFund(Fund("escrow")) {
		t.Error("unknown fund must not be adjustable")
	}
}
