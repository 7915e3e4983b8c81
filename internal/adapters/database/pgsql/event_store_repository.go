package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsledger/backoffice_ledger/internal/apperrors"
	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portsrepo "github.com/opsledger/backoffice_ledger/internal/core/ports/repositories"
)

// Postgres error code for unique constraint violations.
const uniqueViolationCode = "23505"

// PgxEventStoreRepository persists streams in a single append-only events
// table. Per-stream ordering is enforced by the (stream_id, sequence) primary
// key; a concurrent append at the same sequence surfaces as a unique
// violation and is reported as a version conflict.
type PgxEventStoreRepository struct {
	pool *pgxpool.Pool
}

// NewPgxEventStoreRepository creates a new event store backed by Postgres.
func NewPgxEventStoreRepository(pool *pgxpool.Pool) portsrepo.EventStore {
	return &PgxEventStoreRepository{pool: pool}
}

// AppendEvents appends events to a stream inside a DB transaction, verifying
// the stream's current version first.
func (r *PgxEventStoreRepository) AppendEvents(ctx context.Context, streamID string, expectedVersion int64, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore rollback error
	}()

	var currentVersion int64
	versionQuery := `
		SELECT COALESCE(MAX(sequence), 0)
		FROM events
		WHERE stream_id = $1;
	`
	if err := tx.QueryRow(ctx, versionQuery, streamID).Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to read version of stream %s: %w", streamID, err)
	}
	if currentVersion != expectedVersion {
		return fmt.Errorf("%w: stream %s is at version %d, expected %d", apperrors.ErrConflict, streamID, currentVersion, expectedVersion)
	}

	batch := &pgx.Batch{}
	insertQuery := `
		INSERT INTO events (event_id, stream_id, organization_id, sequence, event_type, occurred_at, actor, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, ev := range events {
		batch.Queue(insertQuery,
			ev.EventID,
			ev.StreamID,
			ev.OrganizationID,
			ev.Sequence,
			ev.Type,
			ev.OccurredAt,
			ev.Actor,
			ev.Payload,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// A concurrent writer appended at the same sequence first.
			return fmt.Errorf("%w: stream %s moved past version %d", apperrors.ErrConflict, streamID, expectedVersion)
		}
		return fmt.Errorf("failed to append events to stream %s: %w", streamID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit append to stream %s: %w", streamID, err)
	}
	return nil
}

// LoadStream returns all events of a stream ordered by sequence.
func (r *PgxEventStoreRepository) LoadStream(ctx context.Context, streamID string) ([]domain.Event, error) {
	query := `
		SELECT event_id, stream_id, organization_id, sequence, event_type, occurred_at, actor, payload
		FROM events
		WHERE stream_id = $1
		ORDER BY sequence ASC;
	`
	rows, err := r.pool.Query(ctx, query, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream %s: %w", streamID, err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(
			&ev.EventID,
			&ev.StreamID,
			&ev.OrganizationID,
			&ev.Sequence,
			&ev.Type,
			&ev.OccurredAt,
			&ev.Actor,
			&ev.Payload,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event of stream %s: %w", streamID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stream %s: %w", streamID, err)
	}
	return events, nil
}

// StreamExists reports whether the stream has at least one event.
func (r *PgxEventStoreRepository) StreamExists(ctx context.Context, streamID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM events WHERE stream_id = $1);`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, streamID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check stream %s: %w", streamID, err)
	}
	return exists, nil
}

// ListStreamIDs returns the distinct stream IDs of an organization matching
// the given prefix, in first-appended order.
func (r *PgxEventStoreRepository) ListStreamIDs(ctx context.Context, organizationID string, prefix string) ([]string, error) {
	query := `
		SELECT stream_id
		FROM events
		WHERE organization_id = $1 AND stream_id LIKE $2 || '%'
		GROUP BY stream_id
		ORDER BY MIN(occurred_at) ASC;
	`
	rows, err := r.pool.Query(ctx, query, organizationID, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams for organization %s: %w", organizationID, err)
	}
	defer rows.Close()

	streamIDs := make([]string, 0)
	for rows.Next() {
		var streamID string
		if err := rows.Scan(&streamID); err != nil {
			return nil, fmt.Errorf("failed to scan stream ID: %w", err)
		}
		streamIDs = append(streamIDs, streamID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate streams for organization %s: %w", organizationID, err)
	}
	return streamIDs, nil
}
