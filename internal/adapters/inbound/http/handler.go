// handler.go provides HTTP REST API handlers for operational visibility.
//
// This inbound adapter exposes the running agent's state over HTTP:
//   - GET /status: watchlist size, prestage/trigger counts, last block seen
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nodies-labs/liqsentinel/internal/ports/inbound"
)

// Handler implements HTTP handlers for the API.
type Handler struct {
	service inbound.StatusProvider
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler with the given service.
func NewHandler(service inbound.StatusProvider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the HTTP routes with the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /status", h.Status)
}

// Status handles the operational status endpoint.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Status(r.Context())
	if err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "status unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
