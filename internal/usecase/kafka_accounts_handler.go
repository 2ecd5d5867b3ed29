package usecase

import (
	"context"
	"encoding/json"
	"time"

	"LendPulse/internal/domain/models"
	drepo "LendPulse/internal/domain/repository"
	pkgkafka "LendPulse/pkg/kafka"
)

// KafkaAccountsHandler consumes account-update events from Kafka and feeds
// the recompute path. This is the ingest alternative to the websocket
// stream for deployments where a separate indexer publishes changes.
type KafkaAccountsHandler struct {
	topic   string
	rec     *Recomputer
	metrics drepo.Metrics
}

func NewKafkaAccountsHandler(topic string, rec *Recomputer, metrics drepo.Metrics) *KafkaAccountsHandler {
	return &KafkaAccountsHandler{topic: topic, rec: rec, metrics: metrics}
}

func (h *KafkaAccountsHandler) Topic() string { return h.topic }

// incoming message schema: {address, slot, kind, observed_at}
func (h *KafkaAccountsHandler) Handle(ctx context.Context, b []byte) error {
	var u models.AccountUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if !u.ObservedAt.IsZero() {
		// E2E latency from event time to now (approx)
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(u.ObservedAt).Seconds())
	}

	start := time.Now()
	err := h.rec.Process(ctx, &u)
	h.metrics.RecordLatency("recompute_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_recompute")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaAccountsHandler)(nil)
