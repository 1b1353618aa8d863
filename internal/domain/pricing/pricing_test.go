package pricing

import (
	"errors"
	"math/big"
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name         string
		pricePerGB   int64
		amountGB     int64
		durationDays int64
		want         string
	}{
		{"базовый сценарий", 1, 20, 30, "600"},
		{"нулевая цена", 0, 100, 30, "0"},
		{"один ГБ на один день", 5, 1, 1, "5"},
		{"большая цена", 1_000_000_000_000, 100, 365, "36500000000000000"},
		// 10^12 × 10^6 × 10^6 = 10^24 — за пределами uint64
		{"максимальные границы", 1_000_000_000_000, 1_000_000, 1_000_000, "1000000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quote(tt.pricePerGB, tt.amountGB, tt.durationDays)
			if got.String() != tt.want {
				t.Errorf("Quote(%d, %d, %d) = %s, ожидалось %s",
					tt.pricePerGB, tt.amountGB, tt.durationDays, got.String(), tt.want)
			}
		})
	}
}

func TestQuoteDeterministic(t *testing.T) {
	a := Quote(7, 13, 29)
	b := Quote(7, 13, 29)
	if a.Cmp(b) != 0 {
		t.Errorf("Quote недетерминирован: %s != %s", a, b)
	}
}

func TestValidatePayment(t *testing.T) {
	quoted := big.NewInt(600)

	tests := []struct {
		name      string
		submitted *big.Int
		wantErr   error
	}{
		{"точное совпадение", big.NewInt(600), nil},
		{"недоплата", big.NewInt(500), ErrInsufficientPayment},
		{"переплата", big.NewInt(601), ErrOverpayment},
		{"нулевой платёж", big.NewInt(0), ErrInsufficientPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayment(quoted, tt.submitted)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePayment(600, %s) = %v, ожидалось %v", tt.submitted, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePaymentZeroQuote(t *testing.T) {
	if err := ValidatePayment(big.NewInt(0), big.NewInt(0)); err != nil {
		t.Errorf("нулевая стоимость с нулевым платежом: %v", err)
	}
}
