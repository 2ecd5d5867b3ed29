package repository

import (
	"context"

	"LendPulse/internal/domain/models"
	"LendPulse/internal/domain/repository"
	pkgkafka "LendPulse/pkg/kafka"
)

// KafkaReportPublisher implements Publisher for Kafka. Reports are keyed by
// obligation address so all snapshots of one borrower land on one partition
// in order.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaReportPublisher creates a Kafka report publisher.
func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.HealthReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Address), r)
}

func (p *KafkaReportPublisher) PublishBatch(ctx context.Context, reports []*models.HealthReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(reports))
	for i, r := range reports {
		msgs[i] = pkgkafka.Message{Key: []byte(r.Address), Value: r}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
