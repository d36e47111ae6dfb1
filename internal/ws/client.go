package ws

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"forum-realtime/pkg/events"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max message size
	maxMessageSize = 512 * 1024 // 512 KB

	// Per-connection outgoing buffer depth
	sendBufSize = 256
)

// Client is one live transport session. The identity fields are zero until
// the connection authenticates, and are written only on the hub loop.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id          string
	connectedAt time.Time

	userID string
	email  string
	rooms  map[string]struct{}
}

// ReadPump pumps inbound frames to the hub. It runs once per connection and
// guarantees the hub observes a disconnect for every accepted connection,
// clean close and network loss alike.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("conn", c.id).Msg("unexpected close")
			}
			break
		}

		var env events.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.hub.log.Warn().Err(err).Str("conn", c.id).Msg("unparseable frame dropped")
			continue
		}
		if env.Type == "" {
			c.hub.log.Warn().Str("conn", c.id).Msg("frame without type dropped")
			continue
		}

		c.hub.inbound <- inbound{client: c, env: env}
	}
}

// WritePump pumps hub broadcasts to the connection and keeps it alive with
// periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
