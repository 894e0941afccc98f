// Package kafka publishes ledger events to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"expensetracker/internal/events"
	"expensetracker/internal/log"
)

// Config holds the writer settings; zero values fall back to defaults.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks string // none, one or all
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher builds a synchronous writer so Publish reports delivery
// failures to the caller.
func NewPublisher(cfg Config, logger *log.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka publisher configuration incomplete: both brokers and topic are required")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 10 * time.Millisecond
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		RequiredAcks: requiredAcks(cfg.RequiredAcks),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf("kafka writer: "+msg, args...))
		}),
	}

	logger.Info("Kafka publisher created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &Publisher{writer: w, topic: cfg.Topic}, nil
}

func requiredAcks(s string) kafka.RequiredAcks {
	switch s {
	case "none":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne
	}
}

// Publish writes ev keyed by expense id.
func (p *Publisher) Publish(ctx context.Context, ev events.ExpenseRecorded) error {
	body, err := ev.Marshal()
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ev.Key()),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: ev.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to kafka topic %s: %w", p.topic, err)
	}

	log.FromContext(ctx).DebugContext(ctx, "Published event",
		log.FieldBroker, "kafka",
		log.FieldExpenseID, ev.ExpenseID,
		"topic", p.topic)
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ events.Publisher = (*Publisher)(nil)
