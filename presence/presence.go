// Package presence tracks which users have at least one live connection.
package presence

import (
	"slices"
	"sync"
)

// Tracker counts live connections per user. A user is online while the count is positive.
type Tracker struct {
	mu    sync.Mutex
	conns map[uint]int
}

// NewTracker returns a tracker with nobody online.
func NewTracker() *Tracker {
	return &Tracker{conns: make(map[uint]int)}
}

// Register records a new connection of userID. first is true when this is the
// user's only connection. online is the full online set including userID.
func (t *Tracker) Register(userID uint) (first bool, online []uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conns[userID]++
	return t.conns[userID] == 1, t.snapshotLocked()
}

// Unregister records a closed connection of userID. last is true when the user
// has no connections left. Unknown users are ignored.
func (t *Tracker) Unregister(userID uint) (last bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.conns[userID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(t.conns, userID)
		return true
	}
	t.conns[userID] = n - 1
	return false
}

// Snapshot returns the online user ids in ascending order.
func (t *Tracker) Snapshot() []uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshotLocked()
}

// IsOnline reports whether userID has at least one live connection.
func (t *Tracker) IsOnline(userID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conns[userID] > 0
}

// Connections returns the number of live connections of userID.
func (t *Tracker) Connections(userID uint) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conns[userID]
}

func (t *Tracker) snapshotLocked() []uint {
	ids := make([]uint, 0, len(t.conns))
	for id := range t.conns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
