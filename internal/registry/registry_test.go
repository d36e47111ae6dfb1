package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(userID, connID string) Entry {
	return Entry{
		UserID:      userID,
		Email:       userID + "@example.com",
		ConnID:      connID,
		ConnectedAt: time.Now(),
	}
}

func TestRegisterAndSnapshot(t *testing.T) {
	r := New()
	r.Register(entry("u1", "c1"))
	r.Register(entry("u2", "c2"))

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "u1", snap[0].UserID)
	assert.Equal(t, "u2", snap[1].UserID)
	assert.Equal(t, 2, r.Len())
}

func TestRegisterReplacesEntryForSameUser(t *testing.T) {
	r := New()
	r.Register(entry("u1", "c1"))
	r.Register(entry("u1", "c2"))

	require.Equal(t, 1, r.Len())
	e, ok := r.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "c2", e.ConnID)
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := New()
	r.Register(entry("u1", "c1"))

	r.Remove("u1")
	assert.Equal(t, 0, r.Len())

	// Removing again, or removing a user never registered, is a no-op.
	r.Remove("u1")
	r.Remove("ghost")
	assert.Equal(t, 0, r.Len())
}

func TestSnapshotDoesNotAliasRegistryState(t *testing.T) {
	r := New()
	r.Register(entry("u1", "c1"))

	snap := r.Snapshot()
	snap[0].UserID = "mutated"
	snap[0].Email = "mutated@example.com"

	e, ok := r.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "u1@example.com", e.Email)
}

func TestSnapshotEmptyRegistry(t *testing.T) {
	r := New()
	snap := r.Snapshot()
	require.NotNil(t, snap)
	assert.Empty(t, snap)
}

// The registry reflects exactly the users whose most recent event was a
// register without a later remove.
func TestPresenceConsistencyOverSequence(t *testing.T) {
	r := New()

	r.Register(entry("u1", "c1"))
	r.Register(entry("u2", "c2"))
	r.Remove("u1")
	r.Register(entry("u3", "c3"))
	r.Register(entry("u2", "c4")) // re-authenticate
	r.Remove("u3")

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "u2", snap[0].UserID)
	assert.Equal(t, "c4", snap[0].ConnID)
}
