package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/backoffice_ledger/internal/adapters/memory"
	"github.com/opsledger/backoffice_ledger/internal/apperrors"
	"github.com/opsledger/backoffice_ledger/internal/core/domain"
)

func makeEvent(t *testing.T, streamID, orgID string, seq int64) domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(streamID, orgID, seq, domain.EntrySubmitted, "tester", time.Now().UTC(), domain.EntrySubmittedPayload{})
	require.NoError(t, err)
	return ev
}

func TestEventStore_AppendAndLoadPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	orgID := uuid.NewString()
	streamID := domain.EntryStreamID(uuid.NewString())

	require.NoError(t, store.AppendEvents(ctx, streamID, 0, []domain.Event{makeEvent(t, streamID, orgID, 1)}))
	require.NoError(t, store.AppendEvents(ctx, streamID, 1, []domain.Event{
		makeEvent(t, streamID, orgID, 2),
		makeEvent(t, streamID, orgID, 3),
	}))

	events, err := store.LoadStream(ctx, streamID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Sequence)
	}

	exists, err := store.StreamExists(ctx, streamID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEventStore_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	orgID := uuid.NewString()
	streamID := domain.EntryStreamID(uuid.NewString())

	require.NoError(t, store.AppendEvents(ctx, streamID, 0, []domain.Event{makeEvent(t, streamID, orgID, 1)}))

	// Stale expected version: the stream already moved to 1.
	err := store.AppendEvents(ctx, streamID, 0, []domain.Event{makeEvent(t, streamID, orgID, 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// A gap in the sequence is rejected as well.
	err = store.AppendEvents(ctx, streamID, 1, []domain.Event{makeEvent(t, streamID, orgID, 3)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	events, err := store.LoadStream(ctx, streamID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventStore_UnknownStream(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()

	events, err := store.LoadStream(ctx, domain.EntryStreamID(uuid.NewString()))
	require.NoError(t, err)
	assert.Empty(t, events)

	exists, err := store.StreamExists(ctx, domain.EntryStreamID(uuid.NewString()))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEventStore_ListStreamIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	orgA := uuid.NewString()
	orgB := uuid.NewString()

	first := domain.EntryStreamID(uuid.NewString())
	second := domain.EntryStreamID(uuid.NewString())
	periodStream := domain.PeriodStreamID(orgA, 2025)
	other := domain.EntryStreamID(uuid.NewString())

	require.NoError(t, store.AppendEvents(ctx, first, 0, []domain.Event{makeEvent(t, first, orgA, 1)}))
	require.NoError(t, store.AppendEvents(ctx, second, 0, []domain.Event{makeEvent(t, second, orgA, 1)}))
	require.NoError(t, store.AppendEvents(ctx, periodStream, 0, []domain.Event{makeEvent(t, periodStream, orgA, 1)}))
	require.NoError(t, store.AppendEvents(ctx, other, 0, []domain.Event{makeEvent(t, other, orgB, 1)}))

	streamIDs, err := store.ListStreamIDs(ctx, orgA, "journal:")
	require.NoError(t, err)
	// Only orgA's journal streams, in first-append order.
	assert.Equal(t, []string{first, second}, streamIDs)

	periodStreams, err := store.ListStreamIDs(ctx, orgA, "period:")
	require.NoError(t, err)
	assert.Equal(t, []string{periodStream}, periodStreams)
}

func TestEventStore_ConcurrentAppendsSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	orgID := uuid.NewString()
	streamID := domain.EntryStreamID(uuid.NewString())

	require.NoError(t, store.AppendEvents(ctx, streamID, 0, []domain.Event{makeEvent(t, streamID, orgID, 1)}))

	const writers = 8
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			results <- store.AppendEvents(ctx, streamID, 1, []domain.Event{makeEvent(t, streamID, orgID, 2)})
		}()
	}

	var succeeded, conflicted int
	for i := 0; i < writers; i++ {
		err := <-results
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrConflict)
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicted)

	events, err := store.LoadStream(ctx, streamID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
