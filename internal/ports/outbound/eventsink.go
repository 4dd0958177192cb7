package outbound

import (
	"context"
	"time"
)

// EventKind is the closed set of structured events the liquidation
// pipeline emits across one block-to-submission lifecycle.
type EventKind string

const (
	EventGasQuote    EventKind = "gas_quote"
	EventRouteQuote  EventKind = "route_quote"
	EventTxBuilt     EventKind = "tx_built"
	EventTxSubmitted EventKind = "tx_submitted"
	EventTxRBFBump   EventKind = "tx_rbf_bump"
	EventTxReceipt   EventKind = "tx_receipt"
	EventSkipReason  EventKind = "skip_reason"
)

// Event is one structured line in the append-only metrics stream. Fields
// carries event-specific data (e.g. tx hash, nonce, skip reason) as a flat
// map so every EventSink adapter can serialize it uniformly without a type
// switch per event kind.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Fields    map[string]any
}

// EventSink is the append-only telemetry port: every adapter persists what
// Publish is given, never updates or deletes a prior event.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
