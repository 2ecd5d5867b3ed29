package health

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecimalAmount(t *testing.T) {
	cases := []struct {
		raw   string
		scale int32
		want  string
	}{
		{"100000000", 6, "100"},
		{"1", 6, "0.000001"},
		{"50000000000000000000000000", 24, "50"}, // wad x 6 decimals
		{"0", 18, "0"},
	}
	for _, c := range cases {
		got := decimalAmount(decimal.RequireFromString(c.raw), c.scale)
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("decimalAmount(%s, %d) = %s, want %s", c.raw, c.scale, got, c.want)
		}
	}
}

func TestSafeDiv(t *testing.T) {
	if got := safeDiv(d("10"), d("4")); !got.Equal(d("2.5")) {
		t.Fatalf("safeDiv(10,4) = %s, want 2.5", got)
	}
	if got := safeDiv(d("10"), decimal.Zero); !got.IsZero() {
		t.Fatalf("safeDiv(10,0) = %s, want 0", got)
	}
	if got := safeDiv(decimal.Zero, decimal.Zero); !got.IsZero() {
		t.Fatalf("safeDiv(0,0) = %s, want 0", got)
	}
}

func TestMaxBorrowWeightDominates(t *testing.T) {
	// The unset-weight sentinel must exceed any plausible configured weight
	// by many orders of magnitude.
	if maxBorrowWeight.LessThan(d("1000000000000")) {
		t.Fatalf("maxBorrowWeight = %s, too small to dominate", maxBorrowWeight)
	}
	// Exactness in decimal arithmetic: u64 max round-trips.
	if maxBorrowWeight.String() != "18446744073709551615" {
		t.Fatalf("maxBorrowWeight = %s", maxBorrowWeight)
	}
}
