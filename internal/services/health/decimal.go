package health

import (
	"github.com/shopspring/decimal"
)

// wadScale is the number of decimals in the 18-decimal fixed-point "wad"
// encoding used for interest-bearing amounts.
const wadScale int32 = 18

// maxBorrowWeight is the effectively infinite risk weight applied to a
// borrow whose reserve has no configured borrow weight. It is u64 max, large
// enough to make such a position dominate any weighted-risk computation
// while staying exact in arbitrary-precision decimal arithmetic.
var maxBorrowWeight = decimal.RequireFromString("18446744073709551615")

// decimalAmount converts a raw fixed-point integer to its human-readable
// decimal value: raw / 10^scale. This is the single shared conversion used
// by both deposit and borrow valuation.
func decimalAmount(raw decimal.Decimal, scale int32) decimal.Decimal {
	return raw.Shift(-scale)
}

// safeDiv divides n by d, returning zero when the denominator is zero.
// Every ratio in the aggregate computation uses this policy.
func safeDiv(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.Div(d)
}
