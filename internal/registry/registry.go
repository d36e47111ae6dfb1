// Package registry tracks which users are online in this process: an
// in-memory mapping from user identifier to the metadata of their most
// recent authenticated connection.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Entry is the presence metadata kept per authenticated user.
type Entry struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	ConnID      string    `json:"connId"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Registry is safe for concurrent use. It holds no references to live
// connections; teardown is driven by the transport layer calling Remove.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register inserts or replaces the entry for e.UserID. Re-authenticating
// the same user overwrites the prior entry without error.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	r.entries[e.UserID] = e
	r.mu.Unlock()
}

// Remove deletes the entry for userID. Removing an unknown user is a no-op.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
}

// Get returns the entry for userID, if present.
func (r *Registry) Get(userID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	return e, ok
}

// Snapshot returns a copy of all current entries sorted by user id. Callers
// may hold or mutate the result freely; it never aliases registry state.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
