package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-realtime/internal/registry"
)

func get(t *testing.T, h http.Handler) (*httptest.ResponseRecorder, snapshotResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/presence", nil))

	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestPresenceSnapshotEmpty(t *testing.T) {
	h := NewPresenceHandler(registry.New(), zerolog.Nop())
	rec, resp := get(t, h)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, resp.TotalConnected)
	require.NotNil(t, resp.ConnectedUsers)
	assert.Empty(t, resp.ConnectedUsers)
}

func TestPresenceSnapshotListsUsers(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Entry{UserID: "u2", Email: "b@x.com", ConnID: "c2", ConnectedAt: time.Now()})
	reg.Register(registry.Entry{UserID: "u1", Email: "a@x.com", ConnID: "c1", ConnectedAt: time.Now()})

	_, resp := get(t, NewPresenceHandler(reg, zerolog.Nop()))

	assert.Equal(t, 2, resp.TotalConnected)
	require.Len(t, resp.ConnectedUsers, 2)
	assert.Equal(t, "u1", resp.ConnectedUsers[0].UserID)
	assert.Equal(t, "u2", resp.ConnectedUsers[1].UserID)
}

func TestPresenceSnapshotTracksRemovals(t *testing.T) {
	reg := registry.New()
	reg.Register(registry.Entry{UserID: "u1", ConnID: "c1"})
	reg.Remove("u1")

	_, resp := get(t, NewPresenceHandler(reg, zerolog.Nop()))
	assert.Equal(t, 0, resp.TotalConnected)
}
