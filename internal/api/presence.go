// Package api exposes the side-channel HTTP read surface: a synchronous
// snapshot of who is connected right now. No I/O beyond in-memory state.
package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"forum-realtime/internal/registry"
)

type snapshotResponse struct {
	ConnectedUsers []registry.Entry `json:"connectedUsers"`
	TotalConnected int              `json:"totalConnected"`
}

// PresenceHandler serves the registry snapshot as JSON. Always 200 while the
// process is up.
type PresenceHandler struct {
	reg *registry.Registry
	log zerolog.Logger
}

func NewPresenceHandler(reg *registry.Registry, log zerolog.Logger) *PresenceHandler {
	return &PresenceHandler{reg: reg, log: log.With().Str("component", "api").Logger()}
}

func (h *PresenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entries := h.reg.Snapshot()
	resp := snapshotResponse{
		ConnectedUsers: entries,
		TotalConnected: len(entries),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("encode presence snapshot")
	}
}
