package repository

import (
	"context"
	"time"

	"LendPulse/internal/domain/models"
)

// PositionSource loads decoded obligations and the reserves they reference.
// Implementations own all network retrieval and binary decoding; consumers
// receive already-materialized, immutable snapshots.
type PositionSource interface {
	// LoadObligation fetches one obligation and every reserve it references.
	LoadObligation(ctx context.Context, address string) (*models.ObligationSnapshot, models.ReserveSet, error)
	// LoadMarket fetches all obligations of a lending market plus the
	// market's full reserve set in a bounded number of round trips.
	LoadMarket(ctx context.Context, market string) ([]*models.ObligationSnapshot, models.ReserveSet, error)
	// LoadReserves fetches the reserve set of a market without obligations.
	LoadReserves(ctx context.Context, market string) (models.ReserveSet, error)
}

// UpdateStream delivers on-chain account change notifications.
type UpdateStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.AccountUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher emits computed health reports to a message bus.
type Publisher interface {
	Publish(ctx context.Context, r *models.HealthReport) error
	PublishBatch(ctx context.Context, reports []*models.HealthReport) error
	Close() error
}

// HealthStore persists health snapshots for history queries.
type HealthStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, r *models.HealthReport) error
	StoreBatch(ctx context.Context, reports []*models.HealthReport) error
	History(ctx context.Context, address string, from, to time.Time, limit int) ([]*models.HealthReport, error)
	Liquidatable(ctx context.Context, market string, limit int) ([]*models.HealthReport, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordReportSent(backend, market string)
	RecordError(kind string)
	RecordLiquidatable(market string, n int)
	RecordScannedObligations(market string, n int)
	RecordLatency(op string, seconds float64)
}
