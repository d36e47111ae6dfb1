// Package events is the wire vocabulary shared by the realtime server and
// its clients: the closed set of event names and the payload shape for each.
// Any event name outside this catalog is unknown and must be ignored.
package events

import (
	"github.com/goccy/go-json"
)

// Event names. Direction and scope per name:
//
//	authenticate  client→server   { id, email } or { token }
//	user:online   server→all      { userId, email }
//	user:offline  server→all      { userId }
//	room:join     client→server   forumId (string) or { forumId }
//	room:leave    client→server   forumId (string) or { forumId }
//	post:new      client→room     { forumId, ...postFields, timestamp }
//	comment:new   client→room     { forumId, postId, ...commentFields, timestamp }
//	vote:update   client→room     { forumId, ...voteFields, timestamp }
//	typing:start  client→room     { forumId, postId? } → { userId, userEmail, postId? }
//	typing:stop   client→room     { forumId, postId? } → { userId, postId? }
//
// Room-scoped events are re-broadcast to room "forum_<forumId>" with the
// sender excluded.
const (
	Authenticate = "authenticate"
	UserOnline   = "user:online"
	UserOffline  = "user:offline"
	RoomJoin     = "room:join"
	RoomLeave    = "room:leave"
	PostNew      = "post:new"
	CommentNew   = "comment:new"
	VoteUpdate   = "vote:update"
	TypingStart  = "typing:start"
	TypingStop   = "typing:stop"
)

// Envelope is the JSON frame carried on the wire in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AuthPayload is the client-supplied identity for the authenticate event.
// Either ID/Email are set directly, or Token carries a JWT whose claims
// provide them.
type AuthPayload struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Token string `json:"token,omitempty"`
}

// OnlinePayload is broadcast to all connections when a user authenticates.
type OnlinePayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// OfflinePayload is broadcast to all connections when an authenticated
// connection goes away.
type OfflinePayload struct {
	UserID string `json:"userId"`
}

// TypingPayload is the inbound shape of typing:start / typing:stop.
type TypingPayload struct {
	ForumID string `json:"forumId"`
	PostID  string `json:"postId,omitempty"`
}

// TypingStartBroadcast is the outbound shape of typing:start.
type TypingStartBroadcast struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	PostID    string `json:"postId,omitempty"`
}

// TypingStopBroadcast is the outbound shape of typing:stop.
type TypingStopBroadcast struct {
	UserID string `json:"userId"`
	PostID string `json:"postId,omitempty"`
}

// IsContent reports whether name is a room-scoped content event.
func IsContent(name string) bool {
	switch name {
	case PostNew, CommentNew, VoteUpdate, TypingStart, TypingStop:
		return true
	}
	return false
}

// IsKnown reports whether name belongs to the catalog.
func IsKnown(name string) bool {
	switch name {
	case Authenticate, RoomJoin, RoomLeave, UserOnline, UserOffline:
		return true
	}
	return IsContent(name)
}

// RoomName derives the broadcast scope for a forum identifier.
func RoomName(forumID string) string {
	return "forum_" + forumID
}

// Marshal wraps data in an Envelope and encodes it.
func Marshal(name string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: name, Data: raw})
}

// DecodeForumID extracts a forum identifier from a room:join / room:leave
// payload, accepting either a bare JSON string or { "forumId": "..." }.
func DecodeForumID(data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil && id != "" {
		return id, true
	}
	var obj struct {
		ForumID string `json:"forumId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.ForumID != "" {
		return obj.ForumID, true
	}
	return "", false
}
