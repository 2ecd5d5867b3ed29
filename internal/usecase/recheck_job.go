package usecase

import (
	"context"
	"fmt"

	"LendPulse/pkg/queue"
)

// RecheckJob drains the recheck queue: every payload is one obligation that
// was near its limit at scan time and gets recomputed at queue cadence
// instead of scan cadence.
type RecheckJob struct {
	rec *Recomputer
}

func NewRecheckJob(rec *Recomputer) *RecheckJob {
	return &RecheckJob{rec: rec}
}

func (j *RecheckJob) Name() string { return "obligation-recheck" }

func (j *RecheckJob) Type() string { return RecheckMessageType }

func (j *RecheckJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RecheckPayload](payload)
	if err != nil {
		return fmt.Errorf("recheck payload: %w", err)
	}
	if _, err := j.rec.RecomputeAddress(ctx, p.Address); err != nil {
		return err
	}
	return nil
}

var _ queue.Job = (*RecheckJob)(nil)
