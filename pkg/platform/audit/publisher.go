package audit

import (
	"context"
	"log/slog"
	"time"

	"medgate/pkg/identifier"
)

// Publisher is the emission point for audit events. It normalizes events
// (timestamp, category, identifier masking) and appends them to the sink.
// Emit never returns an error: audit must not be able to fail the operation
// that produced the event, so sink failures are logged and dropped.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger, now: time.Now}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Category = CategoryOf(event.Action)
	if event.Identifier != "" {
		event.Identifier = identifier.Mask(event.Identifier)
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed, event dropped",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
}
