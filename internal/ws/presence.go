package ws

import (
	"forum-realtime/pkg/events"
)

// Presence broadcasts are process-wide, not room-scoped: every connection
// hears about users coming online or going offline. Anonymous connections
// never appear here.

func (h *Hub) publishOnline(c *Client) {
	payload, err := events.Marshal(events.UserOnline, events.OnlinePayload{
		UserID: c.userID,
		Email:  c.email,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal user:online")
		return
	}
	h.broadcastAll(payload, c)
}

func (h *Hub) publishOffline(c *Client) {
	payload, err := events.Marshal(events.UserOffline, events.OfflinePayload{
		UserID: c.userID,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal user:offline")
		return
	}
	h.broadcastAll(payload, c)
}
