package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LendPulse/internal/domain/models"
)

type countingProc struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (p *countingProc) Process(ctx context.Context, u *models.AccountUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.seen = append(p.seen, u.Address)
	return nil
}

func (p *countingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newNopMetrics() *nopMetrics { return &nopMetrics{errors: make(map[string]int)} }

func (m *nopMetrics) RecordReportSent(backend, market string)       {}
func (m *nopMetrics) RecordLiquidatable(market string, n int)       {}
func (m *nopMetrics) RecordScannedObligations(market string, n int) {}
func (m *nopMetrics) RecordLatency(op string, seconds float64)      {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *nopMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func update(address string) *models.AccountUpdate {
	return &models.AccountUpdate{Address: address, Slot: 1, Kind: "obligation"}
}

func TestPipelineForwardsValidUpdate(t *testing.T) {
	proc := &countingProc{}
	p := NewUpdatePipeline(proc, newNopMetrics())

	if err := p.Process(context.Background(), update("ob-1")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("expected 1 forwarded update, got %d", proc.count())
	}
}

func TestPipelineRejectsInvalidUpdates(t *testing.T) {
	proc := &countingProc{}
	m := newNopMetrics()
	p := NewUpdatePipeline(proc, m)

	cases := []*models.AccountUpdate{
		nil,
		{Slot: 1, Kind: "obligation"},
		{Address: "ob-1", Slot: 1},
	}
	for _, u := range cases {
		if err := p.Process(context.Background(), u); err == nil {
			t.Fatalf("expected validation error for %+v", u)
		}
	}
	if proc.count() != 0 {
		t.Fatal("invalid updates must not reach downstream")
	}
	if m.errorCount("pipeline_validate") != 3 {
		t.Fatalf("expected 3 validation errors, got %d", m.errorCount("pipeline_validate"))
	}
}

func TestPipelineThrottlesPerAddress(t *testing.T) {
	proc := &countingProc{}
	m := newNopMetrics()
	p := NewUpdatePipeline(proc, m, WithMaxRPS(1))

	// Two immediate updates for the same address: second is throttled.
	if err := p.Process(context.Background(), update("hot")); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := p.Process(context.Background(), update("hot")); err != nil {
		t.Fatalf("throttled update should not error: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("expected 1 forwarded update, got %d", proc.count())
	}
	if m.errorCount("pipeline_throttle") != 1 {
		t.Fatalf("expected 1 throttle, got %d", m.errorCount("pipeline_throttle"))
	}

	// A different address is not affected.
	if err := p.Process(context.Background(), update("cold")); err != nil {
		t.Fatalf("other address: %v", err)
	}
	if proc.count() != 2 {
		t.Fatalf("expected 2 forwarded updates, got %d", proc.count())
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{err: errors.New("rpc down")}
	m := newNopMetrics()
	p := NewUpdatePipeline(proc, m, WithBufferSize(10))

	if err := p.Process(context.Background(), update("ob-1")); err == nil {
		t.Fatal("expected downstream error to surface")
	}
	if m.errorCount("pipeline_process") != 1 {
		t.Fatalf("expected process error metric, got %d", m.errorCount("pipeline_process"))
	}

	// Recover downstream and start the flusher: buffered update drains.
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("buffered update was not flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
