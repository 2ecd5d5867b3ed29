package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositValuation is the valued form of one non-zero deposit.
type DepositValuation struct {
	ReserveAddress       string          `json:"reserve_address"`
	Symbol               string          `json:"symbol"`
	LoanToValueRatio     decimal.Decimal `json:"loan_to_value_ratio"`
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	Price                decimal.Decimal `json:"price"`
	Amount               decimal.Decimal `json:"amount"`
	AmountUSD            decimal.Decimal `json:"amount_usd"`
}

// BorrowValuation is the valued form of one non-zero borrow, after interest
// accrual to the reserve's current index.
type BorrowValuation struct {
	ReserveAddress       string          `json:"reserve_address"`
	Symbol               string          `json:"symbol"`
	LoanToValueRatio     decimal.Decimal `json:"loan_to_value_ratio"`
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	Price                decimal.Decimal `json:"price"`
	Amount               decimal.Decimal `json:"amount"`
	AmountUSD            decimal.Decimal `json:"amount_usd"`
	WeightedAmountUSD    decimal.Decimal `json:"weighted_amount_usd"`
}

// HealthReport is the full derived risk state of one obligation. All fields
// are exact decimals; rounding happens only at presentation boundaries.
type HealthReport struct {
	Address       string    `json:"address"`
	MarketAddress string    `json:"market_address"`
	Slot          uint64    `json:"slot"`
	ComputedAt    time.Time `json:"computed_at"`

	Deposits []DepositValuation `json:"deposits"`
	Borrows  []BorrowValuation  `json:"borrows"`

	TotalSupplyValue         decimal.Decimal `json:"total_supply_value"`
	TotalBorrowValue         decimal.Decimal `json:"total_borrow_value"`
	WeightedTotalBorrowValue decimal.Decimal `json:"weighted_total_borrow_value"`
	NetAccountValue          decimal.Decimal `json:"net_account_value"`

	BorrowLimit               decimal.Decimal `json:"borrow_limit"`
	LiquidationThresholdValue decimal.Decimal `json:"liquidation_threshold_value"`

	// Conservative accumulators: downside-priced supply and borrow limit,
	// and the worst-case-priced weighted borrow total. Never used for
	// display totals, only for conservative utilization ratios.
	MinPriceSupplyValue         decimal.Decimal `json:"min_price_supply_value"`
	MinPriceBorrowLimit         decimal.Decimal `json:"min_price_borrow_limit"`
	MaxPriceWeightedBorrowValue decimal.Decimal `json:"max_price_weighted_borrow_value"`

	LiquidationThresholdFactor decimal.Decimal `json:"liquidation_threshold_factor"`
	BorrowLimitFactor          decimal.Decimal `json:"borrow_limit_factor"`

	BorrowUtilization                     decimal.Decimal `json:"borrow_utilization"`
	WeightedBorrowUtilization             decimal.Decimal `json:"weighted_borrow_utilization"`
	WeightedConservativeBorrowUtilization decimal.Decimal `json:"weighted_conservative_borrow_utilization"`
	BorrowOverSupply                      decimal.Decimal `json:"borrow_over_supply"`

	IsBorrowLimitReached bool `json:"is_borrow_limit_reached"`
	PositionCount        int  `json:"position_count"`
}

// IsLiquidatable reports whether accrued borrows exceed the liquidation
// threshold value of the collateral.
func (r *HealthReport) IsLiquidatable() bool {
	return r.TotalBorrowValue.GreaterThan(r.LiquidationThresholdValue) &&
		r.TotalBorrowValue.IsPositive()
}

// MarketSummary aggregates the health of every obligation in one market.
type MarketSummary struct {
	MarketAddress    string          `json:"market_address"`
	Obligations      int             `json:"obligations"`
	Liquidatable     int             `json:"liquidatable"`
	AtRisk           int             `json:"at_risk"`
	TotalSupplyValue decimal.Decimal `json:"total_supply_value"`
	TotalBorrowValue decimal.Decimal `json:"total_borrow_value"`
	ComputedAt       time.Time       `json:"computed_at"`
}
