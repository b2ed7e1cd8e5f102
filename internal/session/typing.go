package session

import (
	"context"
	"sync"
	"time"
)

// TypingTracker remembers, per (room, identity), when the last typing
// signal arrived. Entries expire TTL after the last signal and are purged
// by a periodic sweep rather than per-event timers, so timer overhead
// stays constant regardless of how many peers are typing.
type TypingTracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	rooms map[string]map[string]time.Time
}

func NewTypingTracker(ttl time.Duration, now func() time.Time) *TypingTracker {
	if now == nil {
		now = time.Now
	}
	return &TypingTracker{
		ttl:   ttl,
		now:   now,
		rooms: make(map[string]map[string]time.Time),
	}
}

// Touch records a typing signal.
func (t *TypingTracker) Touch(roomID, identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rooms[roomID] == nil {
		t.rooms[roomID] = make(map[string]time.Time)
	}
	t.rooms[roomID][identity] = t.now()
}

// Clear drops one peer's flag immediately, e.g. when their message
// arrives and the indicator would be stale.
func (t *TypingTracker) Clear(roomID, identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms[roomID], identity)
}

// Active returns the identities currently flagged as typing in the room.
// Expiry is the sweep's job; Active reports the table as-is.
func (t *TypingTracker) Active(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.rooms[roomID]))
	for id := range t.rooms[roomID] {
		out = append(out, id)
	}
	return out
}

// Sweep purges entries older than the TTL.
func (t *TypingTracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.ttl)
	for roomID, peers := range t.rooms {
		for id, last := range peers {
			if last.Before(cutoff) {
				delete(peers, id)
			}
		}
		if len(peers) == 0 {
			delete(t.rooms, roomID)
		}
	}
}

// Run sweeps on a fixed period until the context is cancelled.
func (t *TypingTracker) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}
