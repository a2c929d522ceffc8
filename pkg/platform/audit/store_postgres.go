package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "medgate/pkg/platform/tx"
)

// PostgresStore implements Store using a transactional outbox table. Events
// written inside a caller's transaction commit or roll back with it; a relay
// (the Kafka sink wired behind a Worker, or an external process) drains the
// outbox.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the serialized event body. Identifier arrives already
// masked by the publisher.
type outboxPayload struct {
	ID         string `json:"id"`
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

// AppendBatch writes a drained batch of events in a single transaction, so a
// partial flush never leaves the outbox with a gap in the middle of a batch.
func (s *PostgresStore) AppendBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox batch: %w", err)
	}
	batchCtx := txcontext.WithTx(ctx, sqlTx)
	for _, event := range events {
		if err := s.Append(batchCtx, event); err != nil {
			_ = sqlTx.Rollback()
			return err
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit outbox batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New().String()
	payload, err := json.Marshal(outboxPayload{
		ID:         eventID,
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
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateID := event.PatientID
	if aggregateID == "" {
		aggregateID = eventID
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		eventID, aggregateID, string(event.Action), payload, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert audit outbox entry: %w", err)
	}
	return nil
}
