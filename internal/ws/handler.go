package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades HTTP requests to WebSocket connections and hands them to
// the hub. Connections start anonymous; identity arrives later via the
// authenticate event.
type Handler struct {
	hub      *Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the upgrade handler. A non-empty siteOrigin restricts
// browser connections to that origin; requests without an Origin header
// (server-side clients) are always allowed.
func NewHandler(hub *Hub, siteOrigin string, log zerolog.Logger) *Handler {
	h := &Handler{
		hub: hub,
		log: log.With().Str("component", "ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if siteOrigin == "" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == siteOrigin
		},
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn().Err(err).Str("from", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	client := &Client{
		hub:         h.hub,
		conn:        conn,
		send:        make(chan []byte, sendBufSize),
		id:          uuid.NewString(),
		connectedAt: time.Now(),
		rooms:       make(map[string]struct{}),
	}

	h.log.Debug().Str("conn", client.id).Str("from", r.RemoteAddr).Msg("connection accepted")
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
