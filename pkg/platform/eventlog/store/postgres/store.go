// Package postgres persists the event log using the transactional outbox
// pattern. Mutating stores call AppendInTx inside their own transaction so the
// state change, the event row, and the outbox entry commit together. The
// outbox relay publishes entries to Kafka after commit.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "croptrace/pkg/domain"
	"croptrace/pkg/platform/eventlog"
)

// Store reads and writes the events and outbox tables.
type Store struct {
	pool *pgxpool.Pool
}

// New creates an event store on the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// AppendInTx inserts the event and its outbox entry within the caller's
// transaction. The events table assigns the sequence number at insert time,
// not commit time: same-unit mutations hold the unit row lock, so each unit's
// events commit in seq order, but across unrelated units a larger seq can
// commit before a smaller one.
func (s *Store) AppendInTx(ctx context.Context, tx pgx.Tx, event eventlog.Event) (eventlog.Event, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO events (id, kind, occurred_at, handle, unit_id, metadata, owner, from_handle, to_handle, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq`,
		event.ID,
		string(event.Kind),
		event.OccurredAt,
		nullable(event.Handle.String()),
		int64(event.UnitID),
		event.Metadata,
		nullable(event.Owner.String()),
		nullable(event.From.String()),
		nullable(event.To.String()),
		event.RequestID,
	).Scan(&event.Seq)
	if err != nil {
		return eventlog.Event{}, fmt.Errorf("insert event: %w", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return eventlog.Event{}, fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (id, event_seq, payload, created_at)
		VALUES ($1, $2, $3, $4)`,
		event.ID, event.Seq, payload, time.Now(),
	)
	if err != nil {
		return eventlog.Event{}, fmt.Errorf("insert outbox entry: %w", err)
	}
	return event, nil
}

// List returns events with seq > afterSeq in ascending order.
func (s *Store) List(ctx context.Context, afterSeq uint64, limit int) ([]eventlog.Event, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `
		SELECT seq, id, kind, occurred_at, handle, unit_id, metadata, owner, from_handle, to_handle, request_id
		FROM events
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2`,
		int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []eventlog.Event
	for rows.Next() {
		var (
			e                       eventlog.Event
			kind                    string
			unitID                  int64
			handle, owner, from, to *string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &kind, &e.OccurredAt, &handle, &unitID, &e.Metadata, &owner, &from, &to, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = eventlog.Kind(kind)
		e.UnitID = id.UnitID(unitID)
		e.Handle = handleOf(handle)
		e.Owner = handleOf(owner)
		e.From = handleOf(from)
		e.To = handleOf(to)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func handleOf(s *string) id.Handle {
	if s == nil {
		return ""
	}
	return id.Handle(*s)
}
