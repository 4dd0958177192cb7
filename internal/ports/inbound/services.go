// Package inbound contains the primary/inbound ports.
// These interfaces define the use cases that the application exposes.
package inbound

import "context"

// StatusSnapshot is a point-in-time summary of the agent's watchlist and
// block-processing state, exposed over HTTP for operational visibility.
type StatusSnapshot struct {
	LastBlock      int64
	WatchlistSize  int
	PrestagedCount int
	TriggeredCount int
}

// StatusProvider exposes the agent's current operational status.
// Inbound adapters (HTTP handlers) call this to answer status queries.
type StatusProvider interface {
	Status(ctx context.Context) (StatusSnapshot, error)
}

// HealthChecker defines the interface for services that can report readiness and liveness.
// This enables health checking during rolling deployments, ensuring new instances
// are processing blocks before old ones are terminated.
//
// Implementations:
//   - liveness.Tracker: ready after the first block is processed, healthy if a
//     block has landed within the configured staleness window.
type HealthChecker interface {
	// IsReady returns true once the agent has processed at least one block.
	// Used by ECS/Kubernetes readiness probes during rolling deployments.
	IsReady() bool

	// IsHealthy returns true when blocks are still landing regularly.
	// Used by ECS/Kubernetes liveness probes to detect a stalled block source.
	IsHealthy() bool
}
