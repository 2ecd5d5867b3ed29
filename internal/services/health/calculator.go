package health

import (
	"time"

	"github.com/shopspring/decimal"

	"LendPulse/internal/domain/models"
	domsvc "LendPulse/internal/domain/service"
)

// Calculator derives the full risk state of an obligation from its decoded
// snapshot and the reserves it references. It is a pure computation: no
// I/O, no shared state, safe to call concurrently for many obligations.
//
// progression: raw fixed-point integers -> exact decimal amounts ->
// per-position USD valuations -> obligation-level aggregates.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

// Calculate values every non-zero position against its reserve and computes
// the obligation-level aggregates. It fails as a whole on the first
// position whose reserve is missing from the set or whose stored interest
// index is zero; no partial report is ever returned.
func (c *Calculator) Calculate(snapshot *models.ObligationSnapshot, reserves models.ReserveSet) (*models.HealthReport, error) {
	report := &models.HealthReport{
		Address:       snapshot.Address,
		MarketAddress: snapshot.MarketAddress,
		Slot:          snapshot.Slot,
		ComputedAt:    time.Now().UTC(),
	}

	minPriceSupply := decimal.Zero
	minPriceBorrowLimit := decimal.Zero

	for _, dep := range snapshot.Deposits {
		if dep.IsZero() {
			continue
		}
		reserve, ok := reserves.Resolve(dep.ReserveAddress)
		if !ok {
			return nil, reserveNotFoundError(snapshot.Address, dep.ReserveAddress)
		}

		// Collateral-share units -> underlying-asset units -> USD.
		amount := decimalAmount(dep.DepositedAmount, reserve.Decimals).Mul(reserve.CTokenExchangeRate)
		amountUSD := amount.Mul(reserve.Price)

		supplyPrice := reserve.ConservativeSupplyPrice()
		minPriceSupply = minPriceSupply.Add(amount.Mul(supplyPrice))
		minPriceBorrowLimit = minPriceBorrowLimit.Add(amount.Mul(supplyPrice).Mul(reserve.LoanToValueRatio))

		report.Deposits = append(report.Deposits, models.DepositValuation{
			ReserveAddress:       reserve.Address,
			Symbol:               reserve.Symbol,
			LoanToValueRatio:     reserve.LoanToValueRatio,
			LiquidationThreshold: reserve.LiquidationThreshold,
			Price:                reserve.Price,
			Amount:               amount,
			AmountUSD:            amountUSD,
		})

		report.TotalSupplyValue = report.TotalSupplyValue.Add(amountUSD)
		report.BorrowLimit = report.BorrowLimit.Add(amountUSD.Mul(reserve.LoanToValueRatio))
		report.LiquidationThresholdValue = report.LiquidationThresholdValue.Add(amountUSD.Mul(reserve.LiquidationThreshold))
	}

	maxPriceWeightedBorrow := decimal.Zero

	for _, bor := range snapshot.Borrows {
		if bor.IsZero() {
			continue
		}
		reserve, ok := reserves.Resolve(bor.ReserveAddress)
		if !ok {
			return nil, reserveNotFoundError(snapshot.Address, bor.ReserveAddress)
		}

		snapshotRate := decimalAmount(bor.CumulativeBorrowRateWads, wadScale)
		if snapshotRate.IsZero() {
			return nil, dataIntegrityError(snapshot.Address, "zero cumulative borrow rate snapshot on reserve "+reserve.Address)
		}

		// Rescale the debt snapshot from the interest index recorded at last
		// interaction to the reserve's current index, applying all interest
		// accrued since the position was last touched.
		rawAmount := decimalAmount(bor.BorrowedAmountWads, wadScale+reserve.Decimals)
		accruedAmount := rawAmount.Mul(reserve.CumulativeBorrowRate).Div(snapshotRate)
		amountUSD := accruedAmount.Mul(reserve.Price)

		weight := maxBorrowWeight
		if reserve.BorrowWeight != nil {
			weight = *reserve.BorrowWeight
		}
		maxPriceWeightedBorrow = maxPriceWeightedBorrow.Add(accruedAmount.Mul(reserve.ConservativeBorrowPrice()).Mul(weight))

		// Spot-weighted path, distinct from the conservative accumulator
		// above: the headline weighted total uses spot USD value.
		weightedAmountUSD := weight.Mul(amountUSD)

		report.Borrows = append(report.Borrows, models.BorrowValuation{
			ReserveAddress:       reserve.Address,
			Symbol:               reserve.Symbol,
			LoanToValueRatio:     reserve.LoanToValueRatio,
			LiquidationThreshold: reserve.LiquidationThreshold,
			Price:                reserve.Price,
			Amount:               accruedAmount,
			AmountUSD:            amountUSD,
			WeightedAmountUSD:    weightedAmountUSD,
		})

		report.TotalBorrowValue = report.TotalBorrowValue.Add(amountUSD)
		report.WeightedTotalBorrowValue = report.WeightedTotalBorrowValue.Add(weightedAmountUSD)
	}

	report.MinPriceSupplyValue = minPriceSupply
	report.MinPriceBorrowLimit = minPriceBorrowLimit
	report.MaxPriceWeightedBorrowValue = maxPriceWeightedBorrow

	report.NetAccountValue = report.TotalSupplyValue.Sub(report.TotalBorrowValue)
	report.LiquidationThresholdFactor = safeDiv(report.LiquidationThresholdValue, report.TotalSupplyValue)
	report.BorrowLimitFactor = safeDiv(report.BorrowLimit, report.TotalSupplyValue)
	report.BorrowUtilization = safeDiv(report.TotalBorrowValue, report.BorrowLimit)
	report.BorrowOverSupply = safeDiv(report.TotalBorrowValue, report.TotalSupplyValue)

	// The zero-guard checks the conservative limit while the division uses
	// the nominal one. Inherited behavior, kept exactly; see the tests.
	if minPriceBorrowLimit.IsZero() {
		report.WeightedBorrowUtilization = decimal.Zero
	} else {
		report.WeightedBorrowUtilization = safeDiv(report.WeightedTotalBorrowValue, report.BorrowLimit)
	}
	report.WeightedConservativeBorrowUtilization = safeDiv(maxPriceWeightedBorrow, minPriceBorrowLimit)

	report.IsBorrowLimitReached = report.BorrowUtilization.GreaterThanOrEqual(decimal.New(1, 0))
	report.PositionCount = len(report.Deposits) + len(report.Borrows)

	return report, nil
}

var _ domsvc.HealthCalculator = (*Calculator)(nil)
