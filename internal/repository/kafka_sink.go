package repository

import (
	"context"

	"github.com/layiku/data-simulator/internal/domain/models"
	"github.com/layiku/data-simulator/internal/domain/repository"
	pkgkafka "github.com/layiku/data-simulator/pkg/kafka"
)

// KafkaSink publishes feed events to a Kafka topic, keyed by object name so
// one object's points stay ordered within a partition.
type KafkaSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSink creates a Kafka-backed point sink.
func NewKafkaSink(producer *pkgkafka.Producer, topic string) repository.PointSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Init(ctx context.Context) error {
	return nil // topics are provisioned out of band
}

func (s *KafkaSink) StoreBatch(ctx context.Context, events []models.FeedEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(ev.Object), Value: ev})
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

func (s *KafkaSink) Health(ctx context.Context) error {
	return nil // the writer dials lazily; publish errors surface per batch
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
