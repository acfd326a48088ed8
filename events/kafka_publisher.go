package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yashrajoria/checkout-service/models"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes payment events keyed by order code so all events of an
// order land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 10 * time.Second
)

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := newKafkaWriter(brokers, topic)
	logger.Info("kafka payment publisher initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// newKafkaWriter flushes each event almost immediately; events are published
// one at a time from task workers, so waiting to fill a batch only adds latency.
func newKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: kafkaBatchTimeout,
		WriteTimeout: kafkaWriteTimeout,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.OrderCode),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}
	p.logger.Info("payment event published",
		zap.String("sink", "kafka"),
		zap.String("type", event.Type),
		zap.String("order_code", event.OrderCode),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
