// Package worker relays committed custody events to the publisher.
//
// With the Postgres stores, events land in the outbox table inside the same
// transaction as the state change; OutboxRelay drains that table in seq order
// and marks entries published once the broker acknowledges them. With the
// in-memory stores there is no outbox, so StreamRelay subscribes to the log
// directly.
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"croptrace/pkg/platform/eventlog"
)

// Publisher ships one event payload. Returning nil means the event is
// durably accepted downstream.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// OutboxRelay drains the outbox table into the publisher.
type OutboxRelay struct {
	db           *sql.DB
	publisher    Publisher
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

// NewOutboxRelay creates a relay polling db every pollInterval.
func NewOutboxRelay(db *sql.DB, publisher Publisher, logger *slog.Logger, pollInterval time.Duration) *OutboxRelay {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &OutboxRelay{
		db:           db,
		publisher:    publisher,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    100,
	}
}

// Run polls until the context is canceled. Publish failures are logged and
// retried on the next tick; entries are only marked published after the
// broker accepts them, so delivery is at-least-once and per-unit in order.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (r *OutboxRelay) drain(ctx context.Context) error {
	for {
		n, err := r.drainBatch(ctx)
		if err != nil || n < r.batchSize {
			return err
		}
	}
}

// drainBatch publishes unpublished rows in seq order. Only committed rows are
// visible here: an in-flight transaction holding a smaller seq is picked up on
// a later tick, so unrelated events can reach the broker out of seq while each
// unit's events stay ordered (same-unit mutations serialize on the unit row
// lock, and the partition key is the unit id).
func (r *OutboxRelay) drainBatch(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.event_seq, o.payload, e.unit_id
		FROM outbox o
		JOIN events e ON e.seq = o.event_seq
		WHERE o.published_at IS NULL
		ORDER BY o.event_seq ASC
		LIMIT $1`,
		r.batchSize,
	)
	if err != nil {
		return 0, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	type entry struct {
		id      string
		seq     int64
		payload []byte
		unitID  int64
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.seq, &e.payload, &e.unitID); err != nil {
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox: %w", err)
	}

	for _, e := range entries {
		key := fmt.Sprintf("%d", e.unitID)
		if err := r.publisher.Publish(ctx, key, e.payload); err != nil {
			// Stop at the first failure to keep publish order.
			return 0, fmt.Errorf("publish outbox entry seq=%d: %w", e.seq, err)
		}
		if _, err := r.db.ExecContext(ctx,
			`UPDATE outbox SET published_at = NOW() WHERE id = $1`, e.id,
		); err != nil {
			return 0, fmt.Errorf("mark outbox entry published seq=%d: %w", e.seq, err)
		}
	}
	return len(entries), nil
}

// StreamRelay forwards events from an in-memory log subscription to the
// publisher. Best effort: a dropped or failed event is logged and skipped,
// since the in-memory deployment has no durable source to retry from.
type StreamRelay struct {
	log       *eventlog.Log
	publisher Publisher
	logger    *slog.Logger
}

// NewStreamRelay creates a relay reading from the in-memory log.
func NewStreamRelay(log *eventlog.Log, publisher Publisher, logger *slog.Logger) *StreamRelay {
	return &StreamRelay{log: log, publisher: publisher, logger: logger}
}

// Run forwards events until the context is canceled.
func (r *StreamRelay) Run(ctx context.Context) error {
	events, cancel := r.log.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				r.logger.ErrorContext(ctx, "marshal event failed", "seq", event.Seq, "error", err)
				continue
			}
			if err := r.publisher.Publish(ctx, event.UnitID.String(), payload); err != nil {
				r.logger.ErrorContext(ctx, "publish event failed", "seq", event.Seq, "error", err)
			}
		}
	}
}
