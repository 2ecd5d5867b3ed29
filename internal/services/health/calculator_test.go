package health

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"LendPulse/internal/domain/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// usdcReserve: 6 decimals, exchange rate 1, $2 spot, LTV 0.8, threshold 0.85.
func usdcReserve() *models.Reserve {
	return &models.Reserve{
		Address:              "ReserveUSDC11111111111111111111111111111111",
		Symbol:               "USDC",
		Decimals:             6,
		Price:                d("2"),
		CTokenExchangeRate:   d("1"),
		CumulativeBorrowRate: d("1"),
		LoanToValueRatio:     d("0.8"),
		LiquidationThreshold: d("0.85"),
	}
}

func solReserve() *models.Reserve {
	return &models.Reserve{
		Address:              "ReserveSOL111111111111111111111111111111111",
		Symbol:               "SOL",
		Decimals:             6,
		Price:                d("1"),
		CTokenExchangeRate:   d("1"),
		CumulativeBorrowRate: d("1"),
		LoanToValueRatio:     d("0.5"),
		LiquidationThreshold: d("0.6"),
	}
}

func reserveSet(rs ...*models.Reserve) models.ReserveSet {
	set := models.ReserveSet{}
	for _, r := range rs {
		set.Add(r)
	}
	return set
}

// wads returns amount in units scaled to 10^(18+decimals).
func wads(units string, decimals int32) decimal.Decimal {
	return d(units).Shift(18 + decimals)
}

func TestEmptyObligation(t *testing.T) {
	snap := &models.ObligationSnapshot{Address: "Obligation1"}
	rep, err := NewCalculator().Calculate(snap, reserveSet())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, v := range map[string]decimal.Decimal{
		"TotalSupplyValue":          rep.TotalSupplyValue,
		"TotalBorrowValue":          rep.TotalBorrowValue,
		"BorrowLimit":               rep.BorrowLimit,
		"NetAccountValue":           rep.NetAccountValue,
		"BorrowUtilization":         rep.BorrowUtilization,
		"WeightedBorrowUtilization": rep.WeightedBorrowUtilization,
		"BorrowOverSupply":          rep.BorrowOverSupply,
		"BorrowLimitFactor":         rep.BorrowLimitFactor,
	} {
		if !v.IsZero() {
			t.Fatalf("%s = %s, want 0", name, v)
		}
	}
	if rep.IsBorrowLimitReached {
		t.Fatalf("empty obligation reported at borrow limit")
	}
	if rep.PositionCount != 0 {
		t.Fatalf("PositionCount = %d, want 0", rep.PositionCount)
	}
}

func TestZeroAmountPositionsExcluded(t *testing.T) {
	usdc := usdcReserve()
	snap := &models.ObligationSnapshot{
		Address:  "Obligation1",
		Deposits: []models.DepositPosition{{ReserveAddress: usdc.Address, DepositedAmount: decimal.Zero}},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           usdc.Address,
			BorrowedAmountWads:       decimal.Zero,
			CumulativeBorrowRateWads: decimal.Zero, // never touched for zero entries
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Deposits) != 0 || len(rep.Borrows) != 0 {
		t.Fatalf("zero-amount positions leaked into output: %d deposits %d borrows", len(rep.Deposits), len(rep.Borrows))
	}
	if rep.PositionCount != 0 {
		t.Fatalf("PositionCount = %d, want 0", rep.PositionCount)
	}
	if !rep.TotalSupplyValue.IsZero() || !rep.TotalBorrowValue.IsZero() {
		t.Fatalf("zero-amount positions affected accumulators")
	}
}

func TestSingleDepositValuation(t *testing.T) {
	usdc := usdcReserve()
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  usdc.Address,
			DepositedAmount: d("100").Shift(6), // 100 units in base units
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.TotalSupplyValue.Equal(d("200")) {
		t.Fatalf("TotalSupplyValue = %s, want 200", rep.TotalSupplyValue)
	}
	if !rep.BorrowLimit.Equal(d("160")) {
		t.Fatalf("BorrowLimit = %s, want 160", rep.BorrowLimit)
	}
	if !rep.LiquidationThresholdValue.Equal(d("170")) {
		t.Fatalf("LiquidationThresholdValue = %s, want 170", rep.LiquidationThresholdValue)
	}
	if !rep.BorrowUtilization.IsZero() {
		t.Fatalf("BorrowUtilization = %s, want 0", rep.BorrowUtilization)
	}
	if !rep.NetAccountValue.Equal(d("200")) {
		t.Fatalf("NetAccountValue = %s, want 200", rep.NetAccountValue)
	}
	if !rep.BorrowLimitFactor.Equal(d("0.8")) {
		t.Fatalf("BorrowLimitFactor = %s, want 0.8", rep.BorrowLimitFactor)
	}
	if !rep.LiquidationThresholdFactor.Equal(d("0.85")) {
		t.Fatalf("LiquidationThresholdFactor = %s, want 0.85", rep.LiquidationThresholdFactor)
	}
	if rep.PositionCount != 1 {
		t.Fatalf("PositionCount = %d, want 1", rep.PositionCount)
	}
}

func TestDepositWithUnweightedBorrow(t *testing.T) {
	usdc := usdcReserve()
	sol := solReserve() // $1, no borrow weight configured
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  usdc.Address,
			DepositedAmount: d("100").Shift(6),
		}},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("50", 6),
			CumulativeBorrowRateWads: d("1").Shift(18), // matches current index: no accrual
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.TotalBorrowValue.Equal(d("50")) {
		t.Fatalf("TotalBorrowValue = %s, want 50", rep.TotalBorrowValue)
	}
	if !rep.BorrowUtilization.Equal(d("0.3125")) {
		t.Fatalf("BorrowUtilization = %s, want 0.3125", rep.BorrowUtilization)
	}
	if rep.IsBorrowLimitReached {
		t.Fatalf("IsBorrowLimitReached = true, want false")
	}
	// An unset borrow weight must dominate the weighted total.
	want := maxBorrowWeight.Mul(d("50"))
	if !rep.WeightedTotalBorrowValue.Equal(want) {
		t.Fatalf("WeightedTotalBorrowValue = %s, want %s", rep.WeightedTotalBorrowValue, want)
	}
	if rep.PositionCount != 2 {
		t.Fatalf("PositionCount = %d, want 2", rep.PositionCount)
	}
}

func TestInterestAccrual(t *testing.T) {
	sol := solReserve()
	sol.CumulativeBorrowRate = d("2") // current index doubled since snapshot
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("10", 6),
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Borrows) != 1 {
		t.Fatalf("expected 1 borrow valuation, got %d", len(rep.Borrows))
	}
	if !rep.Borrows[0].Amount.Equal(d("20")) {
		t.Fatalf("accrued amount = %s, want 20", rep.Borrows[0].Amount)
	}
}

func TestZeroSnapshotIndexFails(t *testing.T) {
	sol := solReserve()
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("10", 6),
			CumulativeBorrowRateWads: decimal.Zero,
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(sol))
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("err = %v, want ErrDataIntegrity", err)
	}
	if rep != nil {
		t.Fatalf("expected nil report on data integrity failure")
	}
}

func TestReserveNotFound(t *testing.T) {
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  "MissingReserve11111111111111111111111111111",
			DepositedAmount: d("1").Shift(6),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet())
	if !errors.Is(err, ErrReserveNotFound) {
		t.Fatalf("err = %v, want ErrReserveNotFound", err)
	}
	if rep != nil {
		t.Fatalf("expected nil report when a reserve is missing")
	}

	// Same policy on the borrow side.
	snap = &models.ObligationSnapshot{
		Address: "Obligation1",
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           "MissingReserve11111111111111111111111111111",
			BorrowedAmountWads:       wads("1", 6),
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	if _, err := NewCalculator().Calculate(snap, reserveSet()); !errors.Is(err, ErrReserveNotFound) {
		t.Fatalf("borrow side err = %v, want ErrReserveNotFound", err)
	}
}

func TestZeroBorrowLimitGuardsDivision(t *testing.T) {
	// Collateral with LTV 0 gives a zero borrow limit; utilization must be
	// zero regardless of outstanding debt.
	zeroLTV := usdcReserve()
	zeroLTV.LoanToValueRatio = decimal.Zero
	sol := solReserve()
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  zeroLTV.Address,
			DepositedAmount: d("100").Shift(6),
		}},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("50", 6),
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(zeroLTV, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.BorrowUtilization.IsZero() {
		t.Fatalf("BorrowUtilization = %s, want 0 on zero borrow limit", rep.BorrowUtilization)
	}
	if !rep.TotalBorrowValue.Equal(d("50")) {
		t.Fatalf("TotalBorrowValue = %s, want 50", rep.TotalBorrowValue)
	}
}

func TestNetAccountValueIdentity(t *testing.T) {
	usdc := usdcReserve()
	sol := solReserve()
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{
			{ReserveAddress: usdc.Address, DepositedAmount: d("123.456789").Shift(6).Floor()},
			{ReserveAddress: sol.Address, DepositedAmount: d("7").Shift(6)},
		},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("41.5", 6),
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.NetAccountValue.Equal(rep.TotalSupplyValue.Sub(rep.TotalBorrowValue)) {
		t.Fatalf("NetAccountValue = %s, want %s", rep.NetAccountValue, rep.TotalSupplyValue.Sub(rep.TotalBorrowValue))
	}
}

func TestDepositMonotonicity(t *testing.T) {
	usdc := usdcReserve()
	sol := solReserve()
	build := func(units string) *models.ObligationSnapshot {
		return &models.ObligationSnapshot{
			Address: "Obligation1",
			Deposits: []models.DepositPosition{{
				ReserveAddress:  usdc.Address,
				DepositedAmount: d(units).Shift(6),
			}},
			Borrows: []models.BorrowPosition{{
				ReserveAddress:           sol.Address,
				BorrowedAmountWads:       wads("10", 6),
				CumulativeBorrowRateWads: d("1").Shift(18),
			}},
		}
	}
	small, err := NewCalculator().Calculate(build("100"), reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	large, err := NewCalculator().Calculate(build("150"), reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if large.BorrowLimit.LessThan(small.BorrowLimit) {
		t.Fatalf("borrow limit decreased with larger deposit: %s -> %s", small.BorrowLimit, large.BorrowLimit)
	}
	if large.TotalSupplyValue.LessThan(small.TotalSupplyValue) {
		t.Fatalf("supply value decreased with larger deposit")
	}
	if large.BorrowUtilization.GreaterThan(small.BorrowUtilization) {
		t.Fatalf("utilization increased with larger deposit: %s -> %s", small.BorrowUtilization, large.BorrowUtilization)
	}
}

func TestConservativePricePaths(t *testing.T) {
	usdc := usdcReserve()
	usdc.MinPrice = dp("1.9")

	sol := solReserve()
	sol.EmaPrice = dp("1.2") // above spot, must win for the conservative path
	w := dp("2")
	sol.BorrowWeight = w

	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  usdc.Address,
			DepositedAmount: d("100").Shift(6),
		}},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("50", 6),
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Downside supply valuation: 100 * 1.9; conservative limit applies LTV.
	if !rep.MinPriceSupplyValue.Equal(d("190")) {
		t.Fatalf("MinPriceSupplyValue = %s, want 190", rep.MinPriceSupplyValue)
	}
	if !rep.MinPriceBorrowLimit.Equal(d("152")) {
		t.Fatalf("MinPriceBorrowLimit = %s, want 152", rep.MinPriceBorrowLimit)
	}
	// Upside borrow valuation: 50 * max(1.2, 1) * weight 2 = 120.
	if !rep.MaxPriceWeightedBorrowValue.Equal(d("120")) {
		t.Fatalf("MaxPriceWeightedBorrowValue = %s, want 120", rep.MaxPriceWeightedBorrowValue)
	}
	// Headline weighted total stays on spot: 50 * 1 * 2 = 100.
	if !rep.WeightedTotalBorrowValue.Equal(d("100")) {
		t.Fatalf("WeightedTotalBorrowValue = %s, want 100", rep.WeightedTotalBorrowValue)
	}
	// Conservative utilization: 120 / 152.
	if !rep.WeightedConservativeBorrowUtilization.Equal(d("120").Div(d("152"))) {
		t.Fatalf("WeightedConservativeBorrowUtilization = %s", rep.WeightedConservativeBorrowUtilization)
	}
}

// The weighted utilization zero-guard checks the conservative borrow limit
// while the division itself uses the nominal one. That asymmetry is
// inherited behavior and intentionally preserved: with a zero minPrice the
// guard wins even though the nominal limit is positive.
func TestWeightedUtilizationAsymmetricGuard(t *testing.T) {
	usdc := usdcReserve()
	usdc.MinPrice = dp("0")

	sol := solReserve()
	sol.BorrowWeight = dp("1")

	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  usdc.Address,
			DepositedAmount: d("100").Shift(6),
		}},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("50", 6),
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.BorrowLimit.Equal(d("160")) {
		t.Fatalf("BorrowLimit = %s, want 160", rep.BorrowLimit)
	}
	if !rep.MinPriceBorrowLimit.IsZero() {
		t.Fatalf("MinPriceBorrowLimit = %s, want 0", rep.MinPriceBorrowLimit)
	}
	if !rep.WeightedBorrowUtilization.IsZero() {
		t.Fatalf("WeightedBorrowUtilization = %s, want 0 under conservative-limit guard", rep.WeightedBorrowUtilization)
	}
	if !rep.WeightedConservativeBorrowUtilization.IsZero() {
		t.Fatalf("WeightedConservativeBorrowUtilization = %s, want 0", rep.WeightedConservativeBorrowUtilization)
	}
}

func TestBorrowLimitReached(t *testing.T) {
	usdc := usdcReserve()
	sol := solReserve()
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  usdc.Address,
			DepositedAmount: d("100").Shift(6), // limit 160
		}},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("160", 6), // exactly at the limit
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.IsBorrowLimitReached {
		t.Fatalf("IsBorrowLimitReached = false at utilization %s", rep.BorrowUtilization)
	}
	if rep.IsLiquidatable() {
		t.Fatalf("position at borrow limit is not yet past the liquidation threshold")
	}
}

func TestLiquidatable(t *testing.T) {
	usdc := usdcReserve()
	sol := solReserve()
	snap := &models.ObligationSnapshot{
		Address: "Obligation1",
		Deposits: []models.DepositPosition{{
			ReserveAddress:  usdc.Address,
			DepositedAmount: d("100").Shift(6), // threshold value 170
		}},
		Borrows: []models.BorrowPosition{{
			ReserveAddress:           sol.Address,
			BorrowedAmountWads:       wads("171", 6),
			CumulativeBorrowRateWads: d("1").Shift(18),
		}},
	}
	rep, err := NewCalculator().Calculate(snap, reserveSet(usdc, sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.IsLiquidatable() {
		t.Fatalf("expected liquidatable: borrow %s threshold %s", rep.TotalBorrowValue, rep.LiquidationThresholdValue)
	}
}
