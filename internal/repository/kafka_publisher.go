package repository

import (
	"context"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
	pkgkafka "RiskPulse/pkg/kafka"
)

// KafkaPublisher implements AlertPublisher for Kafka. Alerts and snapshots
// go to separate topics, both keyed by symbol so per-symbol ordering holds.
type KafkaPublisher struct {
	producer       *pkgkafka.Producer
	alertsTopic    string
	snapshotsTopic string
}

// NewKafkaPublisher creates a Kafka alert/snapshot publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, alertsTopic, snapshotsTopic string) repository.AlertPublisher {
	return &KafkaPublisher{
		producer:       producer,
		alertsTopic:    alertsTopic,
		snapshotsTopic: snapshotsTopic,
	}
}

func (p *KafkaPublisher) PublishAlert(ctx context.Context, a *models.BandChangeAlert) error {
	return p.producer.Publish(ctx, p.alertsTopic, []byte(a.Symbol), a)
}

func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, s *models.RiskSnapshot) error {
	return p.producer.Publish(ctx, p.snapshotsTopic, []byte(s.Symbol), s)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
