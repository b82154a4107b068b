package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"croptrace/internal/registry/models"
	id "croptrace/pkg/domain"
	"croptrace/pkg/platform/eventlog"
	eventpg "croptrace/pkg/platform/eventlog/store/postgres"
	"croptrace/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// Postgres persists participants and writes the registration event plus its
// outbox entry in the same transaction, the transactional outbox pattern used
// for every mutating store.
type Postgres struct {
	pool   *pgxpool.Pool
	events *eventpg.Store
}

// NewPostgres creates a Postgres-backed registry store writing events through
// the shared event store.
func NewPostgres(pool *pgxpool.Pool, events *eventpg.Store) *Postgres {
	return &Postgres{pool: pool, events: events}
}

// Register inserts the participant and its event atomically. A duplicate
// handle maps to sentinel.ErrAlreadyExists and rolls the transaction back.
func (s *Postgres) Register(ctx context.Context, p models.Participant, event eventlog.Event) (eventlog.Event, error) {
	var appended eventlog.Event
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO participants (handle, registered_at) VALUES ($1, $2)`,
			p.Handle.String(), p.RegisteredAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return sentinel.ErrAlreadyExists
			}
			return fmt.Errorf("insert participant: %w", err)
		}

		appended, err = s.events.AppendInTx(ctx, tx, event)
		return err
	})
	if err != nil {
		return eventlog.Event{}, err
	}
	return appended, nil
}

// IsRegistered reports membership.
func (s *Postgres) IsRegistered(ctx context.Context, handle id.Handle) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM participants WHERE handle = $1)`,
		handle.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return exists, nil
}

// Find returns the participant record for a handle.
func (s *Postgres) Find(ctx context.Context, handle id.Handle) (models.Participant, error) {
	var p models.Participant
	var h string
	err := s.pool.QueryRow(ctx,
		`SELECT handle, registered_at FROM participants WHERE handle = $1`,
		handle.String(),
	).Scan(&h, &p.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Participant{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Participant{}, fmt.Errorf("find participant: %w", err)
	}
	p.Handle = id.Handle(h)
	return p, nil
}

// Count reports the number of registered participants.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}
