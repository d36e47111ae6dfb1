package ws

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"forum-realtime/internal/auth"
	"forum-realtime/internal/registry"
	"forum-realtime/pkg/events"
)

// Publisher republishes room broadcasts to a shared channel so other server
// processes can fan them out too. The default deployment runs single-instance
// with no publisher; presence and room broadcast are then only correct within
// this process.
type Publisher interface {
	Publish(room string, payload []byte) error
}

// inbound is one client-submitted event awaiting the hub loop.
type inbound struct {
	client *Client
	env    events.Envelope
}

// remote is a payload fanned in from the bridge, already enveloped.
type remote struct {
	room    string
	payload []byte
}

// Hub owns all realtime state for the process: the set of live connections,
// room membership, and the presence registry. All mutations run on the
// single Run loop, so events submitted for the same room are delivered to
// its members in submission order.
type Hub struct {
	log      zerolog.Logger
	registry *registry.Registry
	bridge   Publisher

	// Guards clients and rooms so read-only accessors can run off-loop.
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	remote     chan remote
}

func NewHub(reg *registry.Registry, log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "hub").Logger(),
		registry:   reg,
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		remote:     make(chan remote, 64),
	}
}

// SetPublisher attaches the cross-process bridge. Must be called before Run.
func (h *Hub) SetPublisher(p Publisher) {
	h.bridge = p
}

// Run is the hub event loop. Each connect, authenticate, join, leave,
// content event, and disconnect is processed to completion before the next.
func (h *Hub) Run() {
	h.log.Info().Msg("hub event loop started")
	for {
		select {
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case in := <-h.inbound:
			h.dispatch(in.client, in.env)
		case r := <-h.remote:
			h.broadcastRoom(r.room, r.payload, nil)
		}
	}
}

// BroadcastRaw enqueues an already-enveloped payload for delivery to every
// member of room. Used by the bridge for events originating on other nodes.
func (h *Hub) BroadcastRaw(room string, payload []byte) {
	h.remote <- remote{room: room, payload: payload}
}

// ClientCount returns the number of live connections, authenticated or not.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the current membership count of room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("conn", c.id).Int("clients", h.ClientCount()).Msg("connection registered")
}

// unregisterClient is the single teardown path for both clean and abrupt
// disconnects: room membership, registry entry, and presence broadcast.
func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	h.mu.Unlock()

	close(c.send)

	if c.userID != "" {
		// A later authenticate by the same user on another connection owns
		// the entry now; leave it alone in that case.
		if e, ok := h.registry.Get(c.userID); ok && e.ConnID == c.id {
			h.registry.Remove(c.userID)
			h.publishOffline(c)
		}
	}
	h.log.Debug().Str("conn", c.id).Str("user", c.userID).Msg("connection unregistered")
}

// dispatch routes one inbound envelope. Unknown event names are ignored by
// contract, which keeps old servers forward-compatible with newer clients.
func (h *Hub) dispatch(c *Client, env events.Envelope) {
	switch env.Type {
	case events.Authenticate:
		h.handleAuthenticate(c, env.Data)
	case events.RoomJoin:
		if id, ok := events.DecodeForumID(env.Data); ok {
			h.join(c, events.RoomName(id))
		}
	case events.RoomLeave:
		if id, ok := events.DecodeForumID(env.Data); ok {
			h.leave(c, events.RoomName(id))
		}
	case events.TypingStart, events.TypingStop:
		h.handleTyping(c, env)
	case events.PostNew, events.CommentNew, events.VoteUpdate:
		h.handleContent(c, env)
	default:
		h.log.Debug().Str("type", env.Type).Str("conn", c.id).Msg("unknown event ignored")
	}
}

// handleAuthenticate resolves the client-supplied identity and registers
// presence. Authenticate is a one-way transition: a second authenticate on
// the same connection is ignored. A payload without an identifier leaves the
// connection anonymous and produces no presence traffic.
func (h *Hub) handleAuthenticate(c *Client, data json.RawMessage) {
	if c.userID != "" {
		h.log.Debug().Str("conn", c.id).Str("user", c.userID).Msg("already authenticated, ignoring")
		return
	}

	var p events.AuthPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.log.Warn().Err(err).Str("conn", c.id).Msg("malformed authenticate payload")
		return
	}
	ident, err := auth.Resolve(p)
	if err != nil {
		h.log.Warn().Err(err).Str("conn", c.id).Msg("authenticate skipped")
		return
	}

	c.userID = ident.UserID
	c.email = ident.Email
	h.registry.Register(registry.Entry{
		UserID:      c.userID,
		Email:       c.email,
		ConnID:      c.id,
		ConnectedAt: c.connectedAt,
	})
	h.log.Info().Str("conn", c.id).Str("user", c.userID).Msg("authenticated")
	h.publishOnline(c)
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
	h.log.Debug().Str("conn", c.id).Str("room", room).Int("size", len(h.rooms[room])).Msg("joined room")
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, room)
	delete(c.rooms, room)
}

// removeFromRoom requires h.mu held. Leaving a room the client never joined
// is a no-op; the last member leaving deletes the room.
func (h *Hub) removeFromRoom(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// handleContent re-broadcasts post:new / comment:new / vote:update to the
// target room with a server timestamp stamped into the payload. A payload
// without a forum id is dropped silently: these are best-effort UI hints,
// and the content itself is persisted elsewhere.
func (h *Hub) handleContent(c *Client, env events.Envelope) {
	var fields map[string]interface{}
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		h.log.Warn().Err(err).Str("type", env.Type).Str("conn", c.id).Msg("malformed content payload")
		return
	}
	forumID, _ := fields["forumId"].(string)
	if forumID == "" {
		h.log.Warn().Str("type", env.Type).Str("conn", c.id).Msg("content event without forumId dropped")
		return
	}
	fields["timestamp"] = time.Now().Unix()

	payload, err := events.Marshal(env.Type, fields)
	if err != nil {
		h.log.Error().Err(err).Str("type", env.Type).Msg("marshal broadcast")
		return
	}
	h.broadcastRoom(events.RoomName(forumID), payload, c)
	h.republish(events.RoomName(forumID), payload)
}

// handleTyping rewrites typing events to carry the sender's identity instead
// of the inbound payload before re-broadcast.
func (h *Hub) handleTyping(c *Client, env events.Envelope) {
	var p events.TypingPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		h.log.Warn().Err(err).Str("type", env.Type).Str("conn", c.id).Msg("malformed typing payload")
		return
	}
	if p.ForumID == "" {
		h.log.Warn().Str("type", env.Type).Str("conn", c.id).Msg("typing event without forumId dropped")
		return
	}

	var out interface{}
	if env.Type == events.TypingStart {
		out = events.TypingStartBroadcast{UserID: c.userID, UserEmail: c.email, PostID: p.PostID}
	} else {
		out = events.TypingStopBroadcast{UserID: c.userID, PostID: p.PostID}
	}
	payload, err := events.Marshal(env.Type, out)
	if err != nil {
		h.log.Error().Err(err).Str("type", env.Type).Msg("marshal typing broadcast")
		return
	}
	h.broadcastRoom(events.RoomName(p.ForumID), payload, c)
	h.republish(events.RoomName(p.ForumID), payload)
}

// broadcastRoom delivers payload to every member of room except exclude.
// An empty room is a no-op. A member whose send buffer is full misses the
// event rather than stalling the loop; delivery is fire-and-forget.
func (h *Hub) broadcastRoom(room string, payload []byte, exclude *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if c == exclude {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.log.Warn().Str("conn", c.id).Str("room", room).Msg("send buffer full, event dropped")
		}
	}
}

// broadcastAll delivers payload to every live connection except exclude.
func (h *Hub) broadcastAll(payload []byte, exclude *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c == exclude {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.log.Warn().Str("conn", c.id).Msg("send buffer full, event dropped")
		}
	}
}

func (h *Hub) republish(room string, payload []byte) {
	if h.bridge == nil {
		return
	}
	if err := h.bridge.Publish(room, payload); err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("bridge publish failed")
	}
}
