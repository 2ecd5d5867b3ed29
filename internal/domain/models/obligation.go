package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositPosition is a single collateral deposit inside an obligation.
// DepositedAmount is a raw integer in base units of the collateral-share
// token (scale 10^reserve.Decimals). Zero-amount entries are inert.
type DepositPosition struct {
	ReserveAddress  string
	DepositedAmount decimal.Decimal
}

// IsZero reports whether the deposit carries no value.
func (d DepositPosition) IsZero() bool { return d.DepositedAmount.IsZero() }

// BorrowPosition is a single debt position inside an obligation.
// BorrowedAmountWads is the debt snapshot at last interaction in wad scale
// times token decimals (scale 10^(18+reserve.Decimals)).
// CumulativeBorrowRateWads is the reserve's interest index at that moment,
// wad scale.
type BorrowPosition struct {
	ReserveAddress           string
	BorrowedAmountWads       decimal.Decimal
	CumulativeBorrowRateWads decimal.Decimal
}

// IsZero reports whether the borrow carries no value.
func (b BorrowPosition) IsZero() bool { return b.BorrowedAmountWads.IsZero() }

// ObligationSnapshot is one borrower's decoded on-chain position: ordered
// deposits and borrows plus the market the obligation belongs to. It is a
// read-only input; the calculator never mutates it.
type ObligationSnapshot struct {
	Address       string
	MarketAddress string
	Deposits      []DepositPosition
	Borrows       []BorrowPosition

	// Slot the account was observed at; informational only.
	Slot uint64
}

// AccountUpdate signals that an on-chain account changed and any obligation
// derived from it needs recomputation.
type AccountUpdate struct {
	Address    string    `json:"address"`
	Slot       uint64    `json:"slot"`
	Kind       string    `json:"kind"` // "obligation" or "reserve"
	ObservedAt time.Time `json:"observed_at"`
}
