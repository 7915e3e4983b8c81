package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/opsledger/backoffice_ledger/internal/apperrors"
	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portsrepo "github.com/opsledger/backoffice_ledger/internal/core/ports/repositories"
)

// EventStore is an in-memory event store for tests and local development.
// It honors the same ordering and version-conflict contract as the Postgres
// implementation.
type EventStore struct {
	mu      sync.RWMutex
	streams map[string][]domain.Event
	order   []string // stream IDs in first-append order
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[string][]domain.Event)}
}

var _ portsrepo.EventStore = (*EventStore)(nil)

// AppendEvents appends events to a stream, enforcing the expected version.
func (s *EventStore) AppendEvents(_ context.Context, streamID string, expectedVersion int64, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream, known := s.streams[streamID]
	currentVersion := int64(len(stream))
	if currentVersion != expectedVersion {
		return fmt.Errorf("%w: stream %s is at version %d, expected %d", apperrors.ErrConflict, streamID, currentVersion, expectedVersion)
	}
	for i, ev := range events {
		want := expectedVersion + int64(i) + 1
		if ev.Sequence != want {
			return fmt.Errorf("%w: event sequence %d does not continue stream %s at %d", apperrors.ErrConflict, ev.Sequence, streamID, want)
		}
	}

	if !known {
		s.order = append(s.order, streamID)
	}
	s.streams[streamID] = append(stream, events...)
	return nil
}

// LoadStream returns a copy of a stream's events in sequence order.
func (s *EventStore) LoadStream(_ context.Context, streamID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[streamID]
	out := make([]domain.Event, len(stream))
	copy(out, stream)
	return out, nil
}

// StreamExists reports whether the stream has at least one event.
func (s *EventStore) StreamExists(_ context.Context, streamID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.streams[streamID]) > 0, nil
}

// ListStreamIDs returns the organization's stream IDs matching the prefix, in
// first-append order.
func (s *EventStore) ListStreamIDs(_ context.Context, organizationID string, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streamIDs := make([]string, 0)
	for _, streamID := range s.order {
		if !strings.HasPrefix(streamID, prefix) {
			continue
		}
		stream := s.streams[streamID]
		if len(stream) == 0 || stream[0].OrganizationID != organizationID {
			continue
		}
		streamIDs = append(streamIDs, streamID)
	}
	return streamIDs, nil
}
