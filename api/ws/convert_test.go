package ws

import (
	"errors"
	"math/big"
	"testing"
)

func TestParseAmount(t *testing.T) {
	got, err := parseAmount("1.5", 2)
	if err != nil || got.Cmp(big.NewInt(150)) != 0 {
		t.Errorf(`parseAmount("1.5", 2) = %v, %v, want 150`, got, err)
	}
	got, err = parseAmount("0.000001", 18)
	if err != nil || got.Cmp(big.NewInt(1_000_000_000_000)) != 0 {
		t.Errorf(`parseAmount("0.000001", 18) = %v, %v`, got, err)
	}

	// More precision than the token carries is an error, not a silent
	// rounding.
	if _, err := parseAmount("1.234", 2); !errors.Is(err, errBadAmount) {
		t.Errorf("sub-unit fraction: %v, want errBadAmount", err)
	}
	if _, err := parseAmount("not-a-number", 2); !errors.Is(err, errBadAmount) {
		t.Errorf("garbage: %v, want errBadAmount", err)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := formatAmount(big.NewInt(150), 2); got != "1.5" {
		t.Errorf("formatAmount(150, 2) = %q, want 1.5", got)
	}
	if got := formatAmount(nil, 2); got != "0" {
		t.Errorf("formatAmount(nil, 2) = %q, want 0", got)
	}
}

func TestParsePrice(t *testing.T) {
	want, _ := new(big.Int).SetString("2500000000000000000", 10)
	got, err := parsePrice("2.5")
	if err != nil || got.Cmp(want) != 0 {
		t.Errorf(`parsePrice("2.5") = %v, %v, want %v`, got, err, want)
	}
	if _, err := parsePrice("0.0000000000000000001"); !errors.Is(err, errBadAmount) {
		t.Errorf("sub-tick price: %v, want errBadAmount", err)
	}
}

func TestValidName(t *testing.T) {
	if !validName("alice") || !validName("WOLF") {
		t.Error("plain names must pass")
	}
	if validName("") || validName("a/b") {
		t.Error("empty names and slashes would break store keys")
	}
}
