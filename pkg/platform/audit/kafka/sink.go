// Package kafka publishes audit events to a Kafka topic. Kafka is the
// durable, append-only system of record for audit in multi-instance
// deployments; single-instance deployments can use the postgres outbox store
// instead.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"medgate/pkg/platform/audit"
)

// Producer is the subset of the franz-go client the sink needs. Narrowing it
// keeps the sink testable without a broker.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink implements audit.Store by producing one record per event. Records are
// keyed by patient id so all events for one patient land in one partition,
// preserving per-patient ordering for consumers.
type Sink struct {
	producer Producer
	topic    string
}

func NewSink(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

type recordPayload struct {
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	PatientID  string `json:"patient_id,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(recordPayload{
		Category:   string(event.Category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Action:     string(event.Action),
		PatientID:  event.PatientID,
		ActorID:    event.ActorID,
		Identifier: event.Identifier,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		ClientIP:   event.ClientIP,
		UserAgent:  event.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.PatientID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// EnsureTopic creates the audit topic if it does not exist yet. Safe to call
// on every startup.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic: %w", resp.Err)
	}
	return nil
}
