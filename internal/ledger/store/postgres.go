package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"croptrace/internal/ledger/models"
	id "croptrace/pkg/domain"
	"croptrace/pkg/platform/eventlog"
	eventpg "croptrace/pkg/platform/eventlog/store/postgres"
	"croptrace/pkg/platform/sentinel"
)

// Postgres persists units. Each mutation runs in a single transaction: the
// unit row (locked FOR UPDATE), the counter, the event row, and the outbox
// entry commit together, so transfers are serialized per unit and a failed
// precondition rolls everything back.
type Postgres struct {
	pool   *pgxpool.Pool
	events *eventpg.Store
}

// NewPostgres creates a Postgres-backed ledger store writing events through
// the shared event store.
func NewPostgres(pool *pgxpool.Pool, events *eventpg.Store) *Postgres {
	return &Postgres{pool: pool, events: events}
}

// Mint claims the next id from the counter, inserts the unit, and appends the
// event, all in one transaction.
func (s *Postgres) Mint(ctx context.Context, unit models.Unit, eventFn func(id.UnitID) eventlog.Event) (models.Unit, error) {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var next int64
		// The single counter row serializes concurrent mints.
		if err := tx.QueryRow(ctx,
			`UPDATE unit_counter SET next_id = next_id + 1 RETURNING next_id - 1`,
		).Scan(&next); err != nil {
			return fmt.Errorf("advance unit counter: %w", err)
		}
		unit.ID = id.UnitID(next)

		_, err := tx.Exec(ctx, `
			INSERT INTO units (id, metadata, owner, minted_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			int64(unit.ID), unit.Metadata, unit.Owner.String(), unit.MintedAt, unit.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert unit: %w", err)
		}

		_, err = s.events.AppendInTx(ctx, tx, eventFn(unit.ID))
		return err
	})
	if err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

// Execute locks the unit row, runs validate then mutate, updates the row, and
// appends the event in the same transaction. Any validation error rolls back
// with zero observable change.
func (s *Postgres) Execute(ctx context.Context, unitID id.UnitID, validate func(*models.Unit) error, mutate func(*models.Unit), event eventlog.Event) (models.Unit, error) {
	var unit models.Unit
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id, metadata, owner, minted_at, updated_at
			FROM units WHERE id = $1
			FOR UPDATE`,
			int64(unitID),
		)
		if err := scanUnit(row, &unit); err != nil {
			return err
		}

		if err := validate(&unit); err != nil {
			return err
		}
		mutate(&unit)

		_, err := tx.Exec(ctx,
			`UPDATE units SET owner = $2, updated_at = $3 WHERE id = $1`,
			int64(unit.ID), unit.Owner.String(), unit.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update unit: %w", err)
		}

		_, err = s.events.AppendInTx(ctx, tx, event)
		return err
	})
	if err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

// Find returns the unit by id.
func (s *Postgres) Find(ctx context.Context, unitID id.UnitID) (models.Unit, error) {
	var unit models.Unit
	row := s.pool.QueryRow(ctx,
		`SELECT id, metadata, owner, minted_at, updated_at FROM units WHERE id = $1`,
		int64(unitID),
	)
	if err := scanUnit(row, &unit); err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

// NextID reports the id the next mint will receive.
func (s *Postgres) NextID(ctx context.Context) (id.UnitID, error) {
	var next int64
	if err := s.pool.QueryRow(ctx, `SELECT next_id FROM unit_counter`).Scan(&next); err != nil {
		return 0, fmt.Errorf("read unit counter: %w", err)
	}
	return id.UnitID(next), nil
}

// ListByOwner returns units currently owned by the handle, ascending by id.
func (s *Postgres) ListByOwner(ctx context.Context, owner id.Handle, limit int) ([]models.Unit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, metadata, owner, minted_at, updated_at
		FROM units WHERE owner = $1
		ORDER BY id ASC
		LIMIT $2`,
		owner.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query units by owner: %w", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var unit models.Unit
		if err := scanUnit(rows, &unit); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

func scanUnit(row pgx.Row, unit *models.Unit) error {
	var (
		unitID int64
		owner  string
	)
	err := row.Scan(&unitID, &unit.Metadata, &owner, &unit.MintedAt, &unit.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("scan unit: %w", err)
	}
	unit.ID = id.UnitID(unitID)
	unit.Owner = id.Handle(owner)
	return nil
}
