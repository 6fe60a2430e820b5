// Package kafka publishes order change events with a sarama sync producer.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// NewSyncProducer connects a producer that waits for the leader ack.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Timeout = 5 * time.Second

	return sarama.NewSyncProducer(brokers, config)
}

// OrderChangedPublisher sends OrderChangedEvent as JSON keyed by order id,
// so all events of one order land on the same partition in order.
type OrderChangedPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewOrderChangedPublisher(producer sarama.SyncProducer, topic string, l *zap.Logger) *OrderChangedPublisher {
	return &OrderChangedPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.Component(l, "order_changed_publisher"),
	}
}

func (p *OrderChangedPublisher) Publish(ctx context.Context, event ports.OrderChangedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode order changed event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("order changed event stored",
		zap.String("order_id", event.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *OrderChangedPublisher) Close() error {
	return p.producer.Close()
}
