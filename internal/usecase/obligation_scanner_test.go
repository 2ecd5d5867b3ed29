package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"LendPulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

type fakeSource struct {
	snaps    []*models.ObligationSnapshot
	reserves models.ReserveSet
	err      error
}

func (f *fakeSource) LoadObligation(ctx context.Context, address string) (*models.ObligationSnapshot, models.ReserveSet, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	for _, s := range f.snaps {
		if s.Address == address {
			return s, f.reserves, nil
		}
	}
	return nil, nil, errors.New("not found")
}

func (f *fakeSource) LoadMarket(ctx context.Context, market string) ([]*models.ObligationSnapshot, models.ReserveSet, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.snaps, f.reserves, nil
}

func (f *fakeSource) LoadReserves(ctx context.Context, market string) (models.ReserveSet, error) {
	return f.reserves, f.err
}

// fakeCalc maps obligation addresses to canned reports.
type fakeCalc struct {
	reports map[string]*models.HealthReport
	errs    map[string]error
}

func (f *fakeCalc) Calculate(snap *models.ObligationSnapshot, reserves models.ReserveSet) (*models.HealthReport, error) {
	if err, ok := f.errs[snap.Address]; ok {
		return nil, err
	}
	return f.reports[snap.Address], nil
}

type fakeQueue struct {
	messages []string
}

func (f *fakeQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	rp, ok := payload.(RecheckPayload)
	if !ok {
		return errors.New("unexpected payload type")
	}
	f.messages = append(f.messages, rp.Address)
	return nil
}

func snap(address string) *models.ObligationSnapshot {
	return &models.ObligationSnapshot{Address: address, MarketAddress: "market-1"}
}

func healthyReport(address string) *models.HealthReport {
	return &models.HealthReport{
		Address:                   address,
		MarketAddress:             "market-1",
		TotalBorrowValue:          decimal.NewFromInt(10),
		LiquidationThresholdValue: decimal.NewFromInt(100),
		BorrowUtilization:         decimal.RequireFromString("0.1"),
	}
}

func liquidatableReport(address string) *models.HealthReport {
	return &models.HealthReport{
		Address:                   address,
		MarketAddress:             "market-1",
		TotalBorrowValue:          decimal.NewFromInt(120),
		LiquidationThresholdValue: decimal.NewFromInt(100),
		BorrowUtilization:         decimal.RequireFromString("1.2"),
	}
}

func atRiskReport(address string) *models.HealthReport {
	return &models.HealthReport{
		Address:                   address,
		MarketAddress:             "market-1",
		TotalBorrowValue:          decimal.NewFromInt(92),
		LiquidationThresholdValue: decimal.NewFromInt(100),
		BorrowUtilization:         decimal.RequireFromString("0.95"),
	}
}

func TestScanOnceRoutesBatchAndCounts(t *testing.T) {
	source := &fakeSource{snaps: []*models.ObligationSnapshot{snap("ob-safe"), snap("ob-liq")}}
	calc := &fakeCalc{reports: map[string]*models.HealthReport{
		"ob-safe": healthyReport("ob-safe"),
		"ob-liq":  liquidatableReport("ob-liq"),
	}}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	proc := NewReportProcessor(pub, &fakeStore{}, m, "kafka", 0, 0)
	q := &fakeQueue{}

	s := NewObligationScanner(source, calc, proc, m, q, "market-1", time.Minute, decimal.RequireFromString("0.9"))
	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}

	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 reports, got %v", pub.batches)
	}
	if m.scanned["market-1"] != 2 {
		t.Fatalf("expected 2 scanned, got %d", m.scanned["market-1"])
	}
	if m.liq["market-1"] != 1 {
		t.Fatalf("expected 1 liquidatable, got %d", m.liq["market-1"])
	}
}

func TestScanOnceEnqueuesAtRisk(t *testing.T) {
	source := &fakeSource{snaps: []*models.ObligationSnapshot{snap("ob-safe"), snap("ob-risk"), snap("ob-liq")}}
	calc := &fakeCalc{reports: map[string]*models.HealthReport{
		"ob-safe": healthyReport("ob-safe"),
		"ob-risk": atRiskReport("ob-risk"),
		"ob-liq":  liquidatableReport("ob-liq"),
	}}
	m := newFakeMetrics()
	proc := NewReportProcessor(&fakePublisher{}, &fakeStore{}, m, "kafka", 0, 0)
	q := &fakeQueue{}

	s := NewObligationScanner(source, calc, proc, m, q, "market-1", time.Minute, decimal.RequireFromString("0.9"))
	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}

	if len(q.messages) != 2 {
		t.Fatalf("expected 2 recheck messages, got %v", q.messages)
	}
	for _, addr := range q.messages {
		if addr == "ob-safe" {
			t.Fatal("safe obligation should not be enqueued")
		}
	}
}

func TestScanOnceSkipsMalformedObligations(t *testing.T) {
	source := &fakeSource{snaps: []*models.ObligationSnapshot{snap("ob-good"), snap("ob-bad")}}
	calc := &fakeCalc{
		reports: map[string]*models.HealthReport{"ob-good": healthyReport("ob-good")},
		errs:    map[string]error{"ob-bad": errors.New("zero interest index")},
	}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	proc := NewReportProcessor(pub, &fakeStore{}, m, "kafka", 0, 0)

	s := NewObligationScanner(source, calc, proc, m, nil, "market-1", time.Minute, decimal.Decimal{})
	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}

	if len(pub.batches) != 1 || len(pub.batches[0]) != 1 {
		t.Fatalf("expected only the good report in the batch, got %v", pub.batches)
	}
	if m.errors["calculate"] != 1 {
		t.Fatalf("expected 1 calculate error, got %v", m.errors)
	}
}

func TestScanOnceMarketLoadError(t *testing.T) {
	source := &fakeSource{err: errors.New("rpc unavailable")}
	m := newFakeMetrics()
	proc := NewReportProcessor(&fakePublisher{}, &fakeStore{}, m, "kafka", 0, 0)

	s := NewObligationScanner(source, &fakeCalc{}, proc, m, nil, "market-1", time.Minute, decimal.Decimal{})
	if err := s.ScanOnce(context.Background()); err == nil {
		t.Fatal("expected load error to surface")
	}
}
