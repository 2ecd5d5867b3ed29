package usecase

import (
	"context"
	"fmt"
	"time"

	"LendPulse/internal/domain/models"
	drepo "LendPulse/internal/domain/repository"
	domsvc "LendPulse/internal/domain/service"
)

// Recomputer reacts to single account changes: it reloads the affected
// obligation, recomputes its health and hands the report downstream. Reserve
// changes carry no obligation to recompute by themselves; the periodic scan
// picks up their effect on every obligation of the market.
type Recomputer struct {
	source  drepo.PositionSource
	calc    domsvc.HealthCalculator
	proc    *ReportProcessor
	metrics drepo.Metrics
}

func NewRecomputer(source drepo.PositionSource, calc domsvc.HealthCalculator, proc *ReportProcessor, metrics drepo.Metrics) *Recomputer {
	return &Recomputer{source: source, calc: calc, proc: proc, metrics: metrics}
}

// Process handles one account update from the stream or the Kafka ingest.
func (r *Recomputer) Process(ctx context.Context, u *models.AccountUpdate) error {
	if u == nil {
		return fmt.Errorf("update is nil")
	}
	if u.Kind != "obligation" {
		return nil
	}
	_, err := r.RecomputeAddress(ctx, u.Address)
	return err
}

// RecomputeAddress loads one obligation, computes its health and routes the
// report. The computed report is returned for callers that serve it directly.
func (r *Recomputer) RecomputeAddress(ctx context.Context, address string) (*models.HealthReport, error) {
	start := time.Now()

	snap, reserves, err := r.source.LoadObligation(ctx, address)
	if err != nil {
		r.metrics.RecordError("load_obligation")
		return nil, fmt.Errorf("recompute %s: %w", address, err)
	}

	report, err := r.calc.Calculate(snap, reserves)
	if err != nil {
		r.metrics.RecordError("calculate")
		return nil, fmt.Errorf("recompute %s: %w", address, err)
	}

	if err := r.proc.Process(ctx, report); err != nil {
		return nil, err
	}
	r.metrics.RecordLatency("recompute", time.Since(start).Seconds())
	return report, nil
}
