// Package teesink composes several outbound.EventSink adapters behind a
// single port, so the required JSONL file can run alongside the optional
// Postgres audit trail or SNS fan-out without the caller knowing more than
// one EventSink exists.
package teesink

import (
	"context"

	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

var _ outbound.EventSink = (*Sink)(nil)

// Sink publishes to every underlying sink in order, collecting (not
// short-circuiting on) individual failures so one unhealthy adapter never
// silences the rest.
type Sink struct {
	sinks []outbound.EventSink
}

// New composes sinks. A nil entry in sinks is skipped, so callers can pass
// optional adapters unconditionally (e.g. a Postgres sink that is nil when
// DATABASE_URL is unset).
func New(sinks ...outbound.EventSink) *Sink {
	nonNil := make([]outbound.EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			nonNil = append(nonNil, s)
		}
	}
	return &Sink{sinks: nonNil}
}

func (s *Sink) Publish(ctx context.Context, event outbound.Event) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sink) Close() error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
