package repository

import (
	"context"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgkafka "RiskPulse/pkg/kafka"
)

// KafkaAlertSink fans alert events out to a Kafka topic, keyed by alert ID so
// replays stay idempotent for downstream consumers.
type KafkaAlertSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAlertSink(producer *pkgkafka.Producer, topic string) *KafkaAlertSink {
	return &KafkaAlertSink{producer: producer, topic: topic}
}

var _ domrepo.AlertSink = (*KafkaAlertSink)(nil)

func (s *KafkaAlertSink) Record(ctx context.Context, events []models.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(ev.ID), Value: ev})
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

func (s *KafkaAlertSink) Close() error {
	return s.producer.Close()
}

// ProducerPublisher adapts the Kafka producer to the log collector's
// Publisher interface.
type ProducerPublisher struct {
	Producer *pkgkafka.Producer
}

func (p ProducerPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Producer.Publish(ctx, topic, nil, payload)
}
