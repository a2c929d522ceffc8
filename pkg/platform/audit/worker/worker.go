// Package worker drains buffered audit events into a sink. It decouples slow
// sinks (Kafka, postgres) from request latency: the publisher writes to the
// inbox channel and the worker persists in the background.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"medgate/pkg/platform/audit"
)

var errInboxFull = errors.New("audit inbox full")

// maxBatch caps how many pending events one flush drains, so a burst cannot
// hold a sink transaction open indefinitely.
const maxBatch = 64

// BatchAppender is implemented by sinks that can persist a drained batch
// atomically; the postgres outbox flushes a batch in one transaction.
type BatchAppender interface {
	AppendBatch(ctx context.Context, events []audit.Event) error
}

type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run consumes events until the context is cancelled. Flush failures are
// logged and the events dropped; audit must never wedge the pipeline.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.flush(ctx, w.drain(event))
		}
	}
}

// drain collects whatever else is already buffered behind the first event
// without blocking, so bursts reach a batching sink as one flush.
func (w *Worker) drain(first audit.Event) []audit.Event {
	batch := []audit.Event{first}
	for len(batch) < maxBatch {
		select {
		case event := <-w.inbox:
			batch = append(batch, event)
		default:
			return batch
		}
	}
	return batch
}

func (w *Worker) flush(ctx context.Context, batch []audit.Event) {
	if batcher, ok := w.store.(BatchAppender); ok {
		if err := batcher.AppendBatch(ctx, batch); err != nil {
			w.logger.ErrorContext(ctx, "audit worker batch flush failed",
				"batch_size", len(batch),
				"error", err.Error(),
			)
		}
		return
	}
	for _, event := range batch {
		if err := w.store.Append(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "audit worker append failed",
				"action", string(event.Action),
				"error", err.Error(),
			)
		}
	}
}

// ChannelStore adapts a buffered channel into an audit.Store so the publisher
// can stay synchronous while persistence happens in the worker. When the
// buffer is full the event is dropped rather than blocking a request.
type ChannelStore struct {
	inbox chan<- audit.Event
}

func NewChannelStore(inbox chan<- audit.Event) *ChannelStore {
	return &ChannelStore{inbox: inbox}
}

func (s *ChannelStore) Append(_ context.Context, event audit.Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return errInboxFull
	}
}
