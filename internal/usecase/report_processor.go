package usecase

import (
	"context"
	"fmt"
	"time"

	"LendPulse/internal/domain/models"
	drepo "LendPulse/internal/domain/repository"
)

// ReportProcessor routes computed health reports to the configured backend.
type ReportProcessor struct {
	pub     drepo.Publisher
	store   drepo.HealthStore
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewReportProcessor creates a new ReportProcessor instance.
func NewReportProcessor(
	pub drepo.Publisher,
	store drepo.HealthStore,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *ReportProcessor {
	return &ReportProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single health report to the configured backend.
func (p *ReportProcessor) Process(ctx context.Context, r *models.HealthReport) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, r)
	case "clickhouse":
		err = p.store.Store(ctx, r)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process report: %w", err)
	}

	p.metrics.RecordReportSent(p.backend, r.MarketAddress)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes a full-scan worth of reports to the backend, split
// into chunks of the configured batch size. Each chunk gets its own timeout
// so one slow flush cannot stall the whole scan.
func (p *ReportProcessor) ProcessBatch(ctx context.Context, reports []*models.HealthReport) error {
	if len(reports) == 0 {
		return nil
	}

	size := p.batchSz
	if size <= 0 {
		size = len(reports)
	}

	start := time.Now()
	for off := 0; off < len(reports); off += size {
		end := off + size
		if end > len(reports) {
			end = len(reports)
		}
		if err := p.flush(ctx, reports[off:end]); err != nil {
			p.metrics.RecordError("process_batch")
			return fmt.Errorf("process batch: %w", err)
		}
	}

	for _, r := range reports {
		p.metrics.RecordReportSent(p.backend, r.MarketAddress)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

func (p *ReportProcessor) flush(ctx context.Context, chunk []*models.HealthReport) error {
	if p.batchTO > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.batchTO)
		defer cancel()
	}
	switch p.backend {
	case "kafka":
		return p.pub.PublishBatch(ctx, chunk)
	case "clickhouse":
		return p.store.StoreBatch(ctx, chunk)
	default:
		return fmt.Errorf("unknown backend: %s", p.backend)
	}
}

// Close closes underlying resources if available.
func (p *ReportProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
