package router

import (
	"encoding/json"
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"parley/internal/domain"
)

// Conn is one attached connection. Send must not block: implementations
// queue into a bounded buffer and report false when the frame had to be
// dropped (closed or backed-up connection).
type Conn interface {
	Identity() string
	Send(f domain.Frame) bool
}

// Hub is the room membership table and fan-out core. It is the only
// concurrently-mutated shared state in the server; everything else is
// per-connection.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[Conn]struct{}
	joined map[Conn]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[Conn]struct{}),
		joined: make(map[Conn]map[string]struct{}),
	}
}

// Join adds the connection to a room. Idempotent. Other members are
// notified with user-connected so they can proactively exchange keys with
// the newcomer.
func (h *Hub) Join(c Conn, roomID string) {
	if roomID == "" {
		return
	}

	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[Conn]struct{})
		h.rooms[roomID] = members
	}
	if _, already := members[c]; already {
		h.mu.Unlock()
		return
	}
	members[c] = struct{}{}
	if h.joined[c] == nil {
		h.joined[c] = make(map[string]struct{})
	}
	h.joined[c][roomID] = struct{}{}
	h.mu.Unlock()

	jww.INFO.Printf("[FAN] %s joined room %s", c.Identity(), roomID)

	data, err := json.Marshal(domain.UserConnected{Identity: c.Identity()})
	if err != nil {
		jww.ERROR.Printf("[FAN] marshal user-connected: %v", err)
		return
	}
	h.Publish(c, roomID, domain.EvtUserConnected, data)
}

// Publish relays one event to every member of the room except the sender.
// Events from a single connection reach each recipient in publish order;
// there is no ordering promise across different senders.
func (h *Hub) Publish(from Conn, roomID, event string, data json.RawMessage) {
	f := domain.Frame{Event: event, Room: roomID, Data: data}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if c != from {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.Send(f) {
			// Recipient gone or backed up: at-most-once, drop.
			jww.DEBUG.Printf("[FAN] dropped %s for %s in %s", event, c.Identity(), roomID)
		}
	}
}

// Leave removes the connection from every room it was a member of.
// Called on disconnect; in-flight work for the connection finishes but
// its results are discarded at send time.
func (h *Hub) Leave(c Conn) {
	h.mu.Lock()
	rooms := h.joined[c]
	delete(h.joined, c)
	for roomID := range rooms {
		delete(h.rooms[roomID], c)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	if len(rooms) > 0 {
		jww.INFO.Printf("[FAN] %s left %d room(s)", c.Identity(), len(rooms))
	}
}

// Members returns the identities currently subscribed to the room.
func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		out = append(out, c.Identity())
	}
	return out
}
