package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"LendPulse/internal/domain/models"
	drepo "LendPulse/internal/domain/repository"
	domsvc "LendPulse/internal/domain/service"
	"LendPulse/pkg/queue"
)

// RecheckMessageType tags recheck jobs on the redis queue.
const RecheckMessageType = "obligation.recheck"

// RecheckPayload is the body of one queued recheck.
type RecheckPayload struct {
	Address string `json:"address"`
	Market  string `json:"market"`
}

// ObligationScanner walks every obligation of the configured market on a
// fixed cadence, computes health for each, and routes the reports in one
// batch. Obligations close to their liquidation threshold are additionally
// enqueued for faster rechecking.
type ObligationScanner struct {
	source   drepo.PositionSource
	calc     domsvc.HealthCalculator
	proc     *ReportProcessor
	metrics  drepo.Metrics
	queue    queue.QueueService
	market   string
	interval time.Duration

	// utilization at or above this fraction counts as at-risk
	atRiskThreshold decimal.Decimal
}

func NewObligationScanner(
	source drepo.PositionSource,
	calc domsvc.HealthCalculator,
	proc *ReportProcessor,
	metrics drepo.Metrics,
	q queue.QueueService,
	market string,
	interval time.Duration,
	atRiskThreshold decimal.Decimal,
) *ObligationScanner {
	if interval <= 0 {
		interval = time.Minute
	}
	if atRiskThreshold.IsZero() {
		atRiskThreshold = decimal.RequireFromString("0.9")
	}
	return &ObligationScanner{
		source:          source,
		calc:            calc,
		proc:            proc,
		metrics:         metrics,
		queue:           q,
		market:          market,
		interval:        interval,
		atRiskThreshold: atRiskThreshold,
	}
}

// Run blocks, scanning on every tick until the context is cancelled. The
// first scan happens immediately.
func (s *ObligationScanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.ScanOnce(ctx); err != nil {
		s.metrics.RecordError("scan")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil {
				s.metrics.RecordError("scan")
			}
		}
	}
}

// ScanOnce performs one full-market pass.
func (s *ObligationScanner) ScanOnce(ctx context.Context) error {
	start := time.Now()

	snaps, reserves, err := s.source.LoadMarket(ctx, s.market)
	if err != nil {
		return fmt.Errorf("scan market %s: %w", s.market, err)
	}

	reports := make([]*models.HealthReport, 0, len(snaps))
	liquidatable := 0
	for _, snap := range snaps {
		report, err := s.calc.Calculate(snap, reserves)
		if err != nil {
			// A single malformed obligation must not sink the whole scan;
			// surface it through metrics and move on.
			s.metrics.RecordError("calculate")
			continue
		}
		reports = append(reports, report)
		if report.IsLiquidatable() {
			liquidatable++
		}
		if s.atRisk(report) {
			s.enqueueRecheck(ctx, report)
		}
	}

	if err := s.proc.ProcessBatch(ctx, reports); err != nil {
		return err
	}

	s.metrics.RecordScannedObligations(s.market, len(reports))
	s.metrics.RecordLiquidatable(s.market, liquidatable)
	s.metrics.RecordLatency("scan", time.Since(start).Seconds())
	return nil
}

// atRisk reports whether an obligation is close enough to its limit that
// the scan cadence alone is too slow.
func (s *ObligationScanner) atRisk(r *models.HealthReport) bool {
	if r.IsLiquidatable() {
		return true
	}
	return r.BorrowUtilization.GreaterThanOrEqual(s.atRiskThreshold)
}

func (s *ObligationScanner) enqueueRecheck(ctx context.Context, r *models.HealthReport) {
	if s.queue == nil {
		return
	}
	payload := RecheckPayload{Address: r.Address, Market: r.MarketAddress}
	if err := s.queue.PublishMessage(ctx, RecheckMessageType, payload); err != nil {
		s.metrics.RecordError("recheck_enqueue")
	}
}
