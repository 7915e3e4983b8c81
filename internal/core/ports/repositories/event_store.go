package repositories

import (
	"context"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
)

// EventStore is the append-only, per-stream ordered event storage contract.
// Implementations must guarantee a total order per stream and deterministic
// replay; the physical encoding is their concern.
type EventStore interface {
	// AppendEvents appends events to a stream, requiring the stream's current
	// version (sequence of its last event, 0 for a new stream) to equal
	// expectedVersion. A mismatch returns apperrors.ErrConflict and leaves the
	// stream untouched.
	AppendEvents(ctx context.Context, streamID string, expectedVersion int64, events []domain.Event) error

	// LoadStream returns all events of a stream ordered by sequence.
	// An unknown stream yields an empty slice, not an error.
	LoadStream(ctx context.Context, streamID string) ([]domain.Event, error)

	// StreamExists reports whether at least one event was appended to the stream.
	StreamExists(ctx context.Context, streamID string) (bool, error)

	// ListStreamIDs returns the IDs of all streams belonging to an
	// organization whose ID starts with the given prefix (e.g. "journal:").
	ListStreamIDs(ctx context.Context, organizationID string, prefix string) ([]string, error)
}
