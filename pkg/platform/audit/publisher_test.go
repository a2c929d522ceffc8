package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_EmitNormalizes(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, testLogger())

	p.Emit(context.Background(), Event{
		Action:     EventIdentifierClaimed,
		PatientID:  "pat-1",
		Identifier: "PAT-20250601-A7B9",
	})

	events := store.Events()
	require.Len(t, events, 1)
	got := events[0]
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, CategoryCompliance, got.Category)
	assert.Equal(t, "PAT**********A7B9", got.Identifier, "identifiers are masked before persistence")
}

func TestPublisher_EmitWithoutIdentifier(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, testLogger())

	p.Emit(context.Background(), Event{Action: EventRetentionCleanup, Reason: "3 profiles removed"})

	events := store.Events()
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Identifier)
	assert.Equal(t, CategoryOperations, events[0].Category)
}

type failingStore struct{}

func (failingStore) Append(context.Context, Event) error { return errors.New("sink down") }

// Emission cannot fail the operation that produced the event.
func TestPublisher_SinkFailureIsSwallowed(t *testing.T) {
	p := NewPublisher(failingStore{}, testLogger())
	assert.NotPanics(t, func() {
		p.Emit(context.Background(), Event{Action: EventClaimRejected})
	})
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryCompliance, CategoryOf(EventProfileCreated))
	assert.Equal(t, CategorySecurity, CategoryOf(EventRateLimitExceeded))
	assert.Equal(t, CategoryOperations, CategoryOf(EventKind("made_up")))
}
