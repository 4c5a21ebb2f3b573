package domain

import (
	"errors"
	"testing"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"BUY", SideBuy, false},
		{"buy", SideBuy, false},
		{" Sell ", SideSell, false},
		{"short", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSide) {
				t.Errorf("ParseSide(%q) error = %v, want ErrInvalidSide", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseSide(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNewTradeCommit_Buy(t *testing.T) {
	c := NewTradeCommit(Trade{AccountID: "a1", Symbol: "X", Quantity: 5, Price: 10000, Side: SideBuy})

	if c.AccountID != "a1" {
		t.Errorf("AccountID = %q, want a1", c.AccountID)
	}
	if c.BalanceDelta != -50000 {
		t.Errorf("BalanceDelta = %d, want -50000", c.BalanceDelta)
	}
	if c.PositionDelta != 5 {
		t.Errorf("PositionDelta = %d, want 5", c.PositionDelta)
	}
}

func TestNewTradeCommit_Sell(t *testing.T) {
	c := NewTradeCommit(Trade{AccountID: "a1", Symbol: "X", Quantity: 5, Price: 11000, Side: SideSell})

	if c.BalanceDelta != 55000 {
		t.Errorf("BalanceDelta = %d, want 55000", c.BalanceDelta)
	}
	if c.PositionDelta != -5 {
		t.Errorf("PositionDelta = %d, want -5", c.PositionDelta)
	}
}
