// Package events announces completed catalog refreshes on Kafka.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tourcatalog/internal/logging"
	"tourcatalog/internal/model"
)

var ErrPublisherClosed = errors.New("publisher is closed")

const EventRefreshed = "catalog.refreshed"

// Refreshed is the payload of a refresh event.
type Refreshed struct {
	Type string `json:"type"`
	model.RefreshRun
}

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	closed bool
	mu     sync.RWMutex
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 50 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			logging.L().Sugar().Errorf("kafka: "+msg, args...)
		}),
	}
	return NewPublisher(writer, topic), nil
}

// NewPublisher wraps an existing writer.
func NewPublisher(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic}
}

// PublishRefreshed sends one event keyed by run id.
func (p *KafkaPublisher) PublishRefreshed(ctx context.Context, run model.RefreshRun) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	value, err := json.Marshal(Refreshed{Type: EventRefreshed, RefreshRun: run})
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	msg := kafka.Message{
		Key:   []byte(run.ID),
		Value: value,
		Time:  run.FinishedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventRefreshed)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish to %s", p.topic)
	}
	logging.Debug("refresh event published", zap.String("run_id", run.ID), zap.String("topic", p.topic))
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
