package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/pkg/platform/audit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_DrainsInboxIntoStore(t *testing.T) {
	inbox := make(chan audit.Event, 8)
	store := audit.NewInMemoryStore()
	w := New(store, inbox, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	channelStore := NewChannelStore(inbox)
	require.NoError(t, channelStore.Append(ctx, audit.Event{Action: audit.EventProfileCreated}))
	require.NoError(t, channelStore.Append(ctx, audit.Event{Action: audit.EventIdentifierClaimed}))

	require.Eventually(t, func() bool {
		return len(store.Events()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

// batchingStore records flushes the way the postgres outbox receives them.
type batchingStore struct {
	mu      sync.Mutex
	batches [][]audit.Event
}

func (s *batchingStore) Append(context.Context, audit.Event) error {
	return errors.New("batching sink must receive batches")
}

func (s *batchingStore) AppendBatch(_ context.Context, events []audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]audit.Event(nil), events...))
	return nil
}

func (s *batchingStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestWorker_FlushesBatchesToBatchingSink(t *testing.T) {
	inbox := make(chan audit.Event, 8)
	store := &batchingStore{}

	// Buffer a burst before the worker starts so the drain sees it all at once.
	channelStore := NewChannelStore(inbox)
	for i := 0; i < 3; i++ {
		require.NoError(t, channelStore.Append(context.Background(), audit.Event{Action: audit.EventProfileCreated}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = New(store, inbox, testLogger()).Run(ctx) }()

	require.Eventually(t, func() bool {
		return store.total() == 3
	}, 2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.batches, 1, "a pre-buffered burst flushes as one batch")
}

func TestChannelStore_DropsWhenFull(t *testing.T) {
	inbox := make(chan audit.Event, 1)
	store := NewChannelStore(inbox)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, audit.Event{Action: audit.EventProfileCreated}))
	assert.Error(t, store.Append(ctx, audit.Event{Action: audit.EventClaimRejected}),
		"a full inbox must not block the request path")
}
