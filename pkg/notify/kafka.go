package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"logwatch/pkg/engine"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type FindingEvent struct {
	engine.Finding
	Service    string    `json:"service"`
	DetectedAt time.Time `json:"detected_at"`
}

// Kafka publishes one message per finding, keyed by finding ID.
type Kafka struct {
	w       MessageWriter
	service string
	now     func() time.Time
}

func NewKafka(w MessageWriter, service string) *Kafka {
	return &Kafka{w: w, service: service, now: time.Now}
}

func (k *Kafka) Notify(ctx context.Context, findings []engine.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	now := k.now().UTC()
	msgs := make([]kafka.Message, 0, len(findings))
	for _, f := range findings {
		b, err := json.Marshal(FindingEvent{Finding: f, Service: k.service, DetectedAt: now})
		if err != nil {
			return fmt.Errorf("failed to marshal finding %s: %w", f.ID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(f.ID), Value: b})
	}

	if err := k.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write findings to Kafka: %w", err)
	}
	return nil
}
