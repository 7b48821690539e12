// Package events publishes domain events for downstream CRM consumers.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeOrchestrationCompleted = "orchestration.completed"
	TypeLeadScored             = "lead.scored"
)

// Event is the envelope written to every topic.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error
	Close() error
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(key, eventType string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by entity id. The topic is chosen per message.
type KafkaPublisher struct {
	writer       messageWriter
	writeTimeout time.Duration
	logger       logger.Logger
}

func NewKafkaPublisher(brokers []string, writeTimeout time.Duration, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: writeTimeout,
		},
		writeTimeout: writeTimeout,
		logger:       log,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error {
	event := NewEvent(key, eventType, payload)

	data, err := json.Marshal(event)
	if err != nil {
		return errors.NewEventPublishFailedError(topic, err)
	}

	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.NewEventPublishFailedError(topic, err)
	}

	p.logger.Debug("event published", map[string]interface{}{
		"topic":   topic,
		"key":     key,
		"eventId": event.ID,
		"type":    eventType,
	})
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. Used when kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, string, interface{}) error { return nil }
func (NoopPublisher) Close() error { return nil }

// MemoryPublisher keeps published events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events map[string][]Event
	Err    error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{events: make(map[string][]Event)}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic, key, eventType string, payload interface{}) error {
	if p.Err != nil {
		return errors.NewEventPublishFailedError(topic, p.Err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[topic] = append(p.events[topic], NewEvent(key, eventType, payload))
	return nil
}

// Events returns a copy of the events published to topic.
func (p *MemoryPublisher) Events(topic string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events[topic]))
	copy(out, p.events[topic])
	return out
}

func (p *MemoryPublisher) Close() error { return nil }
