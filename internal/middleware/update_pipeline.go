package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"LendPulse/internal/domain/models"
	domrepo "LendPulse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, u *models.AccountUpdate) error
}

// UpdatePipeline sits between the account stream and the recompute path.
// It validates updates, throttles per address (a hot obligation can emit
// many notifications per slot), and buffers when downstream is unavailable.
type UpdatePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.AccountUpdate
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-address last accepted time
}

type PipelineOption func(*UpdatePipeline)

// WithMaxRPS sets the max accepted updates per second per address.
func WithMaxRPS(n int) PipelineOption {
	return func(p *UpdatePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *UpdatePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewUpdatePipeline creates a new pipeline.
func NewUpdatePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *UpdatePipeline {
	p := &UpdatePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   4, // a recompute costs two RPC round trips; keep per-address pressure low
		bufSize:  1000,
		bufCh:    make(chan *models.AccountUpdate, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.AccountUpdate, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered updates.
func (p *UpdatePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case u := <-p.bufCh:
				if u == nil {
					continue
				}
				if err := p.proc.Process(ctx, u); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- u:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *UpdatePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards an update, buffering on errors.
func (p *UpdatePipeline) Process(ctx context.Context, u *models.AccountUpdate) error {
	start := time.Now()
	if err := validateUpdate(u); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(u.Address, start) {
		// throttled; the buffered or scanned path will cover the account
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, u); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- u:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateUpdate(u *models.AccountUpdate) error {
	if u == nil {
		return fmt.Errorf("update nil")
	}
	if u.Address == "" {
		return fmt.Errorf("address empty")
	}
	if u.Kind == "" {
		return fmt.Errorf("kind empty")
	}
	return nil
}

func (p *UpdatePipeline) allow(address string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[address]
	if last.IsZero() {
		p.lastSeen[address] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[address] = now
	return true
}
