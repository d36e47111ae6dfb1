package events

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomName(t *testing.T) {
	assert.Equal(t, "forum_42", RoomName("42"))
}

func TestIsContent(t *testing.T) {
	for _, name := range []string{PostNew, CommentNew, VoteUpdate, TypingStart, TypingStop} {
		assert.True(t, IsContent(name), name)
	}
	for _, name := range []string{Authenticate, UserOnline, UserOffline, RoomJoin, RoomLeave, "made:up"} {
		assert.False(t, IsContent(name), name)
	}
}

func TestIsKnown(t *testing.T) {
	for _, name := range []string{Authenticate, UserOnline, UserOffline, RoomJoin, RoomLeave, PostNew, TypingStop} {
		assert.True(t, IsKnown(name), name)
	}
	assert.False(t, IsKnown("banner:rotate"))
}

func TestDecodeForumID(t *testing.T) {
	id, ok := DecodeForumID(json.RawMessage(`"42"`))
	require.True(t, ok)
	assert.Equal(t, "42", id)

	id, ok = DecodeForumID(json.RawMessage(`{"forumId":"7"}`))
	require.True(t, ok)
	assert.Equal(t, "7", id)

	_, ok = DecodeForumID(json.RawMessage(`{"other":"x"}`))
	assert.False(t, ok)

	_, ok = DecodeForumID(json.RawMessage(`""`))
	assert.False(t, ok)

	_, ok = DecodeForumID(json.RawMessage(`not json`))
	assert.False(t, ok)
}

func TestMarshalEnvelope(t *testing.T) {
	raw, err := Marshal(UserOnline, OnlinePayload{UserID: "u1", Email: "a@x.com"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, UserOnline, env.Type)

	var p OnlinePayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "a@x.com", p.Email)
}
