// Package client is the session wrapper pages and services use to talk to
// the realtime server: one reconnecting connection with a subscribe/emit
// surface over the event catalog.
//
// On reconnect the session re-authenticates automatically but does NOT
// rejoin rooms; the owner decides which forums still matter and re-issues
// JoinForum from its OnReconnect hook.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"forum-realtime/pkg/events"
)

const writeWait = 10 * time.Second

// Identity is the client-supplied identity sent in the authenticate event.
// Either ID/Email or Token must be set.
type Identity struct {
	ID    string
	Email string
	Token string
}

// Handler receives the raw payload of one incoming event.
type Handler func(data json.RawMessage)

// Option configures a Session before it dials.
type Option func(*Session)

// WithIdentity makes the session authenticate immediately after every
// (re)connect.
func WithIdentity(id Identity) Option {
	return func(s *Session) { s.identity = &id }
}

// WithLogger replaces the default no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// Session is a live connection to the realtime server. Safe for concurrent
// use.
type Session struct {
	url      string
	identity *Identity
	log      zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	hmu         sync.Mutex
	nextID      int
	handlers    map[string]map[int]Handler
	reconnectFn map[int]func()

	done chan struct{}
}

// Dial opens the connection and starts the read loop. If an identity was
// provided, the authenticate event is emitted before Dial returns.
func Dial(ctx context.Context, url string, opts ...Option) (*Session, error) {
	s := &Session{
		url:         url,
		log:         zerolog.Nop(),
		handlers:    make(map[string]map[int]Handler),
		reconnectFn: make(map[int]func()),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	s.conn = conn

	if err := s.authenticate(); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

// Close tears the session down. All subscriptions are dead afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return s.conn.Close()
}

// JoinForum subscribes this connection to the forum's room.
func (s *Session) JoinForum(forumID string) error {
	return s.emit(events.RoomJoin, forumID)
}

// LeaveForum drops the room membership. Other joined rooms are unaffected.
func (s *Session) LeaveForum(forumID string) error {
	return s.emit(events.RoomLeave, forumID)
}

// EmitPostNew announces a new post to the forum's room. fields carries the
// post attributes; forumId is set by the helper.
func (s *Session) EmitPostNew(forumID string, fields map[string]interface{}) error {
	return s.emitContent(events.PostNew, forumID, fields)
}

// EmitCommentNew announces a new comment on a post.
func (s *Session) EmitCommentNew(forumID, postID string, fields map[string]interface{}) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["postId"] = postID
	return s.emitContent(events.CommentNew, forumID, fields)
}

// EmitVoteUpdate announces a vote change.
func (s *Session) EmitVoteUpdate(forumID string, fields map[string]interface{}) error {
	return s.emitContent(events.VoteUpdate, forumID, fields)
}

// EmitTypingStart signals that this user started composing. postID may be
// empty for thread-level composition.
func (s *Session) EmitTypingStart(forumID, postID string) error {
	return s.emit(events.TypingStart, events.TypingPayload{ForumID: forumID, PostID: postID})
}

// EmitTypingStop signals that composition stopped.
func (s *Session) EmitTypingStop(forumID, postID string) error {
	return s.emit(events.TypingStop, events.TypingPayload{ForumID: forumID, PostID: postID})
}

// On registers a callback for an incoming event name and returns its
// unsubscribe function. Call it when the owning component unmounts so the
// callback does not leak across reconnects.
func (s *Session) On(event string, fn Handler) (unsubscribe func()) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.nextID++
	id := s.nextID
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[int]Handler)
	}
	s.handlers[event][id] = fn

	return func() {
		s.hmu.Lock()
		defer s.hmu.Unlock()
		delete(s.handlers[event], id)
	}
}

// OnUserOnline subscribes to presence arrivals.
func (s *Session) OnUserOnline(fn func(events.OnlinePayload)) func() {
	return s.On(events.UserOnline, func(data json.RawMessage) {
		var p events.OnlinePayload
		if err := json.Unmarshal(data, &p); err == nil {
			fn(p)
		}
	})
}

// OnUserOffline subscribes to presence departures.
func (s *Session) OnUserOffline(fn func(events.OfflinePayload)) func() {
	return s.On(events.UserOffline, func(data json.RawMessage) {
		var p events.OfflinePayload
		if err := json.Unmarshal(data, &p); err == nil {
			fn(p)
		}
	})
}

// OnPostNew subscribes to new-post notifications in joined rooms.
func (s *Session) OnPostNew(fn Handler) func() { return s.On(events.PostNew, fn) }

// OnCommentNew subscribes to new-comment notifications in joined rooms.
func (s *Session) OnCommentNew(fn Handler) func() { return s.On(events.CommentNew, fn) }

// OnVoteUpdate subscribes to vote-change notifications in joined rooms.
func (s *Session) OnVoteUpdate(fn Handler) func() { return s.On(events.VoteUpdate, fn) }

// OnTypingStart subscribes to typing indicators in joined rooms.
func (s *Session) OnTypingStart(fn func(events.TypingStartBroadcast)) func() {
	return s.On(events.TypingStart, func(data json.RawMessage) {
		var p events.TypingStartBroadcast
		if err := json.Unmarshal(data, &p); err == nil {
			fn(p)
		}
	})
}

// OnTypingStop subscribes to typing-stopped indicators in joined rooms.
func (s *Session) OnTypingStop(fn func(events.TypingStopBroadcast)) func() {
	return s.On(events.TypingStop, func(data json.RawMessage) {
		var p events.TypingStopBroadcast
		if err := json.Unmarshal(data, &p); err == nil {
			fn(p)
		}
	})
}

// OnReconnect fires after the session re-established a dropped connection
// and re-authenticated. Room memberships are gone at that point.
func (s *Session) OnReconnect(fn func()) (unsubscribe func()) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.nextID++
	id := s.nextID
	s.reconnectFn[id] = fn

	return func() {
		s.hmu.Lock()
		defer s.hmu.Unlock()
		delete(s.reconnectFn, id)
	}
}

func (s *Session) emitContent(name, forumID string, fields map[string]interface{}) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["forumId"] = forumID
	return s.emit(name, fields)
}

func (s *Session) emit(name string, data interface{}) error {
	payload, err := events.Marshal(name, data)
	if err != nil {
		return fmt.Errorf("client: marshal %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("client: session closed")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("client: emit %s: %w", name, err)
	}
	return nil
}

func (s *Session) authenticate() error {
	if s.identity == nil {
		return nil
	}
	return s.emit(events.Authenticate, events.AuthPayload{
		ID:    s.identity.ID,
		Email: s.identity.Email,
		Token: s.identity.Token,
	})
}

// readLoop dispatches incoming frames and drives reconnection when the
// connection drops.
func (s *Session) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.isClosed() {
				return
			}
			s.log.Warn().Err(err).Msg("connection lost, reconnecting")
			if !s.reconnect() {
				return
			}
			continue
		}

		var env events.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.log.Warn().Err(err).Msg("unparseable frame dropped")
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env events.Envelope) {
	s.hmu.Lock()
	fns := make([]Handler, 0, len(s.handlers[env.Type]))
	for _, fn := range s.handlers[env.Type] {
		fns = append(fns, fn)
	}
	s.hmu.Unlock()

	for _, fn := range fns {
		fn(env.Data)
	}
}

// reconnect dials until it succeeds or the session is closed, with
// exponential backoff. On success it re-authenticates and fires the
// OnReconnect hooks.
func (s *Session) reconnect() bool {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry until Close

	for {
		conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
		if err == nil {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				conn.Close()
				return false
			}
			s.conn = conn
			s.mu.Unlock()

			if err := s.authenticate(); err != nil {
				s.log.Warn().Err(err).Msg("re-authenticate failed")
			}
			s.fireReconnect()
			s.log.Info().Msg("reconnected")
			return true
		}

		select {
		case <-s.done:
			return false
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (s *Session) fireReconnect() {
	s.hmu.Lock()
	fns := make([]func(), 0, len(s.reconnectFn))
	for _, fn := range s.reconnectFn {
		fns = append(fns, fn)
	}
	s.hmu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
