package usecase

import (
	"context"

	"LendPulse/internal/domain/models"
	drepo "LendPulse/internal/domain/repository"
	mid "LendPulse/internal/middleware"
)

// AccountCollector consumes account updates from the node stream and feeds
// them into the recompute path.
type AccountCollector struct {
	stream  drepo.UpdateStream
	rec     *Recomputer
	metrics drepo.Metrics
	pipe    *mid.UpdatePipeline
}

// NewAccountCollector creates a new AccountCollector instance.
func NewAccountCollector(stream drepo.UpdateStream, rec *Recomputer, metrics drepo.Metrics, pipe *mid.UpdatePipeline) *AccountCollector {
	return &AccountCollector{stream: stream, rec: rec, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the update stream is connected.
func (c *AccountCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *AccountCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	upCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, upCh, errCh)
	return nil
}

func (c *AccountCollector) consume(ctx context.Context, upCh <-chan *models.AccountUpdate, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
			}
			if err == nil && ok {
				continue
			}
			// The read loop exited and both channels are closing. Stale
			// channels must be replaced or the select spins on them.
			upCh, errCh = c.reconnect(ctx)
			if upCh == nil {
				return
			}
		case u, ok := <-upCh:
			if !ok {
				upCh, errCh = c.reconnect(ctx)
				if upCh == nil {
					return
				}
				continue
			}
			if u == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, u)
			} else {
				_ = c.rec.Process(ctx, u)
			}
		}
	}
}

// reconnect retries until the stream is back up, then returns fresh read
// channels. Nil channels mean the context ended during the retry loop.
func (c *AccountCollector) reconnect(ctx context.Context) (<-chan *models.AccountUpdate, <-chan error) {
	for {
		if err := c.stream.Reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			c.metrics.RecordError("reconnect")
			continue
		}
		return c.stream.Read(ctx)
	}
}

func (c *AccountCollector) Stop() error { return c.stream.Close() }

// Shutdown stops the pipeline and closes the stream.
func (c *AccountCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
