// Package notify implements ports.NotificationDispatcher backends.
//
// Production wiring is Circuit(Retrying(Kafka), Log): notices go to the broker
// with bounded retries; when the broker keeps failing the circuit opens and
// notices are written to the structured log instead.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"chatguard/internal/moderation/ports"
)

// Producer is the franz-go surface the Kafka dispatcher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes notices as JSON records keyed by user, so one user's notices
// stay ordered within a partition.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) (*Kafka, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if topic == "" {
		return nil, errors.New("notice topic is required")
	}
	return &Kafka{producer: producer, topic: topic}, nil
}

func (k *Kafka) Dispatch(ctx context.Context, notice ports.Notice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(notice.UserID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "notice_type", Value: []byte(notice.Type)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notice: %w", err)
	}
	return nil
}
