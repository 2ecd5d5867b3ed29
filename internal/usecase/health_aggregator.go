package usecase

import (
	"context"
	"time"

	"LendPulse/internal/domain/models"
	drepo "LendPulse/internal/domain/repository"
	domsvc "LendPulse/internal/domain/service"
	pkgcache "LendPulse/pkg/cache"
)

// HealthAggregator serves the API read side: on-demand health computation
// with a short report cache, stored history, and market-wide summaries.
type HealthAggregator struct {
	source drepo.PositionSource
	calc   domsvc.HealthCalculator
	store  drepo.HealthStore
	cache  pkgcache.Service
	ttl    time.Duration
}

func NewHealthAggregator(source drepo.PositionSource, calc domsvc.HealthCalculator, store drepo.HealthStore, cache pkgcache.Service, ttl time.Duration) *HealthAggregator {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &HealthAggregator{source: source, calc: calc, store: store, cache: cache, ttl: ttl}
}

// CurrentHealth computes a fresh report for one obligation. Unless refresh
// is forced, a report computed within the cache TTL is served as-is.
func (a *HealthAggregator) CurrentHealth(ctx context.Context, address string, refresh bool) (*models.HealthReport, error) {
	key := pkgcache.GenerateKey("health", address)
	if a.cache != nil && !refresh {
		var cached models.HealthReport
		if err := a.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	snap, reserves, err := a.source.LoadObligation(ctx, address)
	if err != nil {
		return nil, err
	}
	report, err := a.calc.Calculate(snap, reserves)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		_ = a.cache.Set(ctx, key, report, a.ttl)
	}
	return report, nil
}

// History returns stored snapshots for one obligation, newest first.
func (a *HealthAggregator) History(ctx context.Context, address string, from, to time.Time, limit int) ([]*models.HealthReport, error) {
	return a.store.History(ctx, address, from, to, limit)
}

// Liquidatable returns the latest stored snapshot of every flagged
// obligation in the market.
func (a *HealthAggregator) Liquidatable(ctx context.Context, market string, limit int) ([]*models.HealthReport, error) {
	return a.store.Liquidatable(ctx, market, limit)
}

// MarketSummary computes an aggregate risk view over every obligation in
// the market. Expensive (full scan), so cached for the TTL.
func (a *HealthAggregator) MarketSummary(ctx context.Context, market string) (*models.MarketSummary, error) {
	key := pkgcache.GenerateKey("market-summary", market)
	if a.cache != nil {
		var cached models.MarketSummary
		if err := a.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	snaps, reserves, err := a.source.LoadMarket(ctx, market)
	if err != nil {
		return nil, err
	}

	summary := &models.MarketSummary{
		MarketAddress: market,
		ComputedAt:    time.Now().UTC(),
	}
	for _, snap := range snaps {
		report, err := a.calc.Calculate(snap, reserves)
		if err != nil {
			// Skip malformed obligations in the aggregate; per-address
			// queries still surface the failure explicitly.
			continue
		}
		summary.Obligations++
		summary.TotalSupplyValue = summary.TotalSupplyValue.Add(report.TotalSupplyValue)
		summary.TotalBorrowValue = summary.TotalBorrowValue.Add(report.TotalBorrowValue)
		if report.IsLiquidatable() {
			summary.Liquidatable++
			summary.AtRisk++
		} else if report.IsBorrowLimitReached {
			summary.AtRisk++
		}
	}

	if a.cache != nil {
		_ = a.cache.Set(ctx, key, summary, a.ttl)
	}
	return summary, nil
}
