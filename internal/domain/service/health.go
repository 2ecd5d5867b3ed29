package service

import (
	"LendPulse/internal/domain/models"
)

// HealthCalculator derives the full risk state of one obligation from its
// decoded snapshot and the reserves it references. Implementations must be
// pure: no I/O, no shared state, safe for concurrent use.
type HealthCalculator interface {
	Calculate(snapshot *models.ObligationSnapshot, reserves models.ReserveSet) (*models.HealthReport, error)
}
