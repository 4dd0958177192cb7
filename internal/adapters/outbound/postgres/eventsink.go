package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// Compile-time check that EventSink implements outbound.EventSink
var _ outbound.EventSink = (*EventSink)(nil)

// EventSink is a PostgreSQL implementation of the EventSink port: an
// INSERT-only audit trail of the pipeline's telemetry stream, giving
// operators a queryable history without introducing mutable business
// state.
type EventSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventSink creates a new PostgreSQL event sink. The caller owns the
// pool's lifecycle.
func NewEventSink(pool *pgxpool.Pool, logger *slog.Logger) (*EventSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSink{
		pool:   pool,
		logger: logger.With("component", "postgres-eventsink"),
	}, nil
}

// Publish inserts one event row. There is no conflict target: events have
// no natural key, and a duplicate row from an at-least-once retry is
// harmless in an audit log.
func (s *EventSink) Publish(ctx context.Context, event outbound.Event) error {
	fields, err := marshalFields(event.Fields)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO pipeline_event (kind, occurred_at, fields) VALUES ($1, $2, $3)`,
		string(event.Kind), event.Timestamp, fields)
	if err != nil {
		return fmt.Errorf("insert pipeline event: %w", err)
	}
	return nil
}

// Close releases nothing: the pool is owned and closed by whoever
// constructed it, since it may be shared with other components.
func (s *EventSink) Close() error {
	return nil
}
