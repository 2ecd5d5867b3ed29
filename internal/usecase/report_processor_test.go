package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"LendPulse/internal/domain/models"
)

type fakePublisher struct {
	published []*models.HealthReport
	batches   [][]*models.HealthReport
	err       error
	closed    bool
}

func (f *fakePublisher) Publish(ctx context.Context, r *models.HealthReport) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, r)
	return nil
}

func (f *fakePublisher) PublishBatch(ctx context.Context, reports []*models.HealthReport) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, reports)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeStore struct {
	stored  []*models.HealthReport
	batches [][]*models.HealthReport
	err     error
	closed  bool
}

func (f *fakeStore) Init(ctx context.Context) error { return nil }

func (f *fakeStore) Store(ctx context.Context, r *models.HealthReport) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, r)
	return nil
}

func (f *fakeStore) StoreBatch(ctx context.Context, reports []*models.HealthReport) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, reports)
	return nil
}

func (f *fakeStore) History(ctx context.Context, address string, from, to time.Time, limit int) ([]*models.HealthReport, error) {
	return nil, nil
}

func (f *fakeStore) Liquidatable(ctx context.Context, market string, limit int) ([]*models.HealthReport, error) {
	return nil, nil
}

func (f *fakeStore) Health(ctx context.Context) error { return nil }

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

type fakeMetrics struct {
	sent    map[string]int
	errors  map[string]int
	scanned map[string]int
	liq     map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		sent:    make(map[string]int),
		errors:  make(map[string]int),
		scanned: make(map[string]int),
		liq:     make(map[string]int),
	}
}

func (m *fakeMetrics) RecordReportSent(backend, market string) { m.sent[backend]++ }
func (m *fakeMetrics) RecordError(kind string)                 { m.errors[kind]++ }
func (m *fakeMetrics) RecordLiquidatable(market string, n int) { m.liq[market] = n }
func (m *fakeMetrics) RecordScannedObligations(market string, n int) {
	m.scanned[market] = n
}
func (m *fakeMetrics) RecordLatency(op string, seconds float64) {}

func report(address string) *models.HealthReport {
	return &models.HealthReport{Address: address, MarketAddress: "market-1"}
}

func TestProcessRoutesToKafka(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	m := newFakeMetrics()
	p := NewReportProcessor(pub, store, m, "kafka", 0, 0)

	if err := p.Process(context.Background(), report("ob-1")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published report, got %d", len(pub.published))
	}
	if len(store.stored) != 0 {
		t.Fatalf("clickhouse store should not be used with kafka backend")
	}
	if m.sent["kafka"] != 1 {
		t.Fatalf("expected sent metric for kafka, got %v", m.sent)
	}
}

func TestProcessRoutesToClickHouse(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	m := newFakeMetrics()
	p := NewReportProcessor(pub, store, m, "clickhouse", 0, 0)

	if err := p.Process(context.Background(), report("ob-1")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(store.stored) != 1 {
		t.Fatalf("expected 1 stored report, got %d", len(store.stored))
	}
	if len(pub.published) != 0 {
		t.Fatalf("publisher should not be used with clickhouse backend")
	}
}

func TestProcessUnknownBackend(t *testing.T) {
	p := NewReportProcessor(&fakePublisher{}, &fakeStore{}, newFakeMetrics(), "postgres", 0, 0)
	if err := p.Process(context.Background(), report("ob-1")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestProcessNilReport(t *testing.T) {
	p := NewReportProcessor(&fakePublisher{}, &fakeStore{}, newFakeMetrics(), "kafka", 0, 0)
	if err := p.Process(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil report")
	}
}

func TestProcessBackendErrorSurfaces(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := newFakeMetrics()
	p := NewReportProcessor(pub, &fakeStore{}, m, "kafka", 0, 0)

	if err := p.Process(context.Background(), report("ob-1")); err == nil {
		t.Fatal("expected publish error to surface")
	}
	if m.errors["process"] != 1 {
		t.Fatalf("expected process error metric, got %v", m.errors)
	}
}

func TestProcessBatch(t *testing.T) {
	pub := &fakePublisher{}
	m := newFakeMetrics()
	p := NewReportProcessor(pub, &fakeStore{}, m, "kafka", 0, 0)

	reports := []*models.HealthReport{report("ob-1"), report("ob-2"), report("ob-3")}
	if err := p.ProcessBatch(context.Background(), reports); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(pub.batches) != 1 || len(pub.batches[0]) != 3 {
		t.Fatalf("expected one batch of 3, got %v", pub.batches)
	}
	if m.sent["kafka"] != 3 {
		t.Fatalf("expected 3 sent metrics, got %d", m.sent["kafka"])
	}
}

func TestProcessBatchChunksBySize(t *testing.T) {
	pub := &fakePublisher{}
	m := newFakeMetrics()
	p := NewReportProcessor(pub, &fakeStore{}, m, "kafka", 2, 0)

	reports := []*models.HealthReport{
		report("ob-1"), report("ob-2"), report("ob-3"),
		report("ob-4"), report("ob-5"),
	}
	if err := p.ProcessBatch(context.Background(), reports); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(pub.batches) != 3 {
		t.Fatalf("expected 3 chunks for 5 reports at size 2, got %d", len(pub.batches))
	}
	for i, want := range []int{2, 2, 1} {
		if len(pub.batches[i]) != want {
			t.Fatalf("chunk %d has %d reports, want %d", i, len(pub.batches[i]), want)
		}
	}
	if m.sent["kafka"] != 5 {
		t.Fatalf("expected 5 sent metrics, got %d", m.sent["kafka"])
	}
}

type deadlinePublisher struct {
	fakePublisher
	deadlines []bool
}

func (d *deadlinePublisher) PublishBatch(ctx context.Context, reports []*models.HealthReport) error {
	_, ok := ctx.Deadline()
	d.deadlines = append(d.deadlines, ok)
	return d.fakePublisher.PublishBatch(ctx, reports)
}

func TestProcessBatchAppliesFlushTimeout(t *testing.T) {
	pub := &deadlinePublisher{}
	p := NewReportProcessor(pub, &fakeStore{}, newFakeMetrics(), "kafka", 1, time.Second)

	reports := []*models.HealthReport{report("ob-1"), report("ob-2")}
	if err := p.ProcessBatch(context.Background(), reports); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(pub.deadlines) != 2 {
		t.Fatalf("expected 2 flushes, got %d", len(pub.deadlines))
	}
	for i, ok := range pub.deadlines {
		if !ok {
			t.Fatalf("flush %d ran without a deadline", i)
		}
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	pub := &fakePublisher{}
	p := NewReportProcessor(pub, &fakeStore{}, newFakeMetrics(), "kafka", 0, 0)
	if err := p.ProcessBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
	if len(pub.batches) != 0 {
		t.Fatal("empty batch should not hit the backend")
	}
}

func TestCloseReleasesBackends(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	p := NewReportProcessor(pub, store, newFakeMetrics(), "kafka", 0, 0)
	p.Close()
	if !pub.closed || !store.closed {
		t.Fatal("Close should close both backends")
	}
}
