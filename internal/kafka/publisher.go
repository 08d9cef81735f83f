package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/pkg/metrics"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// writer — контракт над kafka.Writer.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PublisherConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Publisher — публикует события изменения товаров; ключ сообщения = id товара,
// поэтому события одного товара попадают в одну партицию по порядку.
type Publisher struct {
	writer    writer
	topic     string
	log       ports.Logger
	closeOnce sync.Once
}

func NewPublisher(cfg *PublisherConfig, log ports.Logger) *Publisher {
	wt := cfg.WriteTimeout
	if wt <= 0 {
		wt = 3 * time.Second
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			WriteTimeout: wt,
		},
		topic: cfg.Topic,
		log:   log,
	}
}

// Publish — синхронная запись одного события.
func (p *Publisher) Publish(ctx context.Context, event domain.ProductEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.ID), Value: raw}); err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Inc()
		return fmt.Errorf("write event %s/%s: %w", event.Type, event.ID, err)
	}
	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "ok").Inc()
	return nil
}

func (p *Publisher) Close() (retErr error) {
	p.closeOnce.Do(func() {
		retErr = p.writer.Close()
	})
	return retErr
}

// NoopPublisher — заглушка при выключенной Kafka.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.ProductEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
