package models

import (
	"github.com/shopspring/decimal"
)

// Reserve is one lending market for a single asset: oracle prices, the
// current interest index and the risk parameters used to value positions
// against it. A Reserve is immutable for the duration of one health
// calculation.
type Reserve struct {
	Address  string
	Symbol   string
	Decimals int32

	// Spot oracle price in USD.
	Price decimal.Decimal
	// Smoothed oracle price; nil when the oracle publishes no EMA.
	EmaPrice *decimal.Decimal
	// Conservative price bounds derived from spot vs EMA; nil when absent.
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal

	// Collateral-share token to underlying-asset conversion factor.
	CTokenExchangeRate decimal.Decimal
	// Current cumulative interest index, wad scale semantics upstream.
	CumulativeBorrowRate decimal.Decimal

	// Fractions in [0,1]; LiquidationThreshold >= LoanToValueRatio.
	LoanToValueRatio     decimal.Decimal
	LiquidationThreshold decimal.Decimal

	// Risk multiplier >= 1 applied to borrows; nil means no safe weight is
	// configured and the borrow must be treated as maximally risky.
	BorrowWeight *decimal.Decimal
}

// ConservativeBorrowPrice returns the worst-case-for-borrower price
// estimate: max(ema, spot) when an EMA price exists, spot otherwise.
func (r *Reserve) ConservativeBorrowPrice() decimal.Decimal {
	if r.EmaPrice != nil && r.EmaPrice.GreaterThan(r.Price) {
		return *r.EmaPrice
	}
	return r.Price
}

// ConservativeSupplyPrice returns the downside price estimate used for
// conservative borrow-limit accumulation: minPrice when configured, spot
// otherwise.
func (r *Reserve) ConservativeSupplyPrice() decimal.Decimal {
	if r.MinPrice != nil {
		return *r.MinPrice
	}
	return r.Price
}

// ReserveSet indexes reserves by address for position resolution.
type ReserveSet map[string]*Reserve

// Resolve returns the reserve for addr, or (nil, false) when the set does
// not contain it.
func (s ReserveSet) Resolve(addr string) (*Reserve, bool) {
	r, ok := s[addr]
	return r, ok
}

// Add inserts or replaces a reserve keyed by its address.
func (s ReserveSet) Add(r *Reserve) {
	s[r.Address] = r
}
