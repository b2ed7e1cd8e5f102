package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"parley/internal/domain"
)

// WS is a websocket client transport. Connect performs the identity
// handshake (the server assigns a fresh identity per connection) and then
// starts the dispatch loop.
type WS struct {
	url string

	mu       sync.Mutex
	ws       *websocket.Conn
	identity string
	handlers map[string][]domain.Handler
	onDown   func(error)
	closed   bool
}

func NewWS(url string) *WS {
	return &WS{
		url:      url,
		handlers: make(map[string][]domain.Handler),
	}
}

// Connect dials the server and blocks until the connected handshake frame
// arrives, so Identity is valid as soon as Connect returns.
func (t *WS) Connect(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", t.url)
	}

	var hello domain.Frame
	if err := ws.ReadJSON(&hello); err != nil {
		_ = ws.Close()
		return errors.Wrap(err, "read handshake")
	}
	if hello.Event != domain.EvtConnected {
		_ = ws.Close()
		return errors.Errorf("handshake: got event %q, want %q", hello.Event, domain.EvtConnected)
	}
	var c domain.Connected
	if err := json.Unmarshal(hello.Data, &c); err != nil {
		_ = ws.Close()
		return errors.Wrap(err, "decode handshake")
	}

	t.mu.Lock()
	t.ws = ws
	t.identity = c.Identity
	t.closed = false
	t.mu.Unlock()

	jww.INFO.Printf("[WS] connected to %s as %s", t.url, c.Identity)
	go t.readLoop(ws)
	return nil
}

// Identity returns the transport-assigned identity for this connection.
func (t *WS) Identity() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity
}

// On registers a handler. Handlers registered for the same event run in
// registration order; all handlers run on the single dispatch goroutine.
func (t *WS) On(event string, h domain.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = append(t.handlers[event], h)
}

// OnDisconnect sets the connection-status callback. It fires once per
// connection, with the read error that ended it (nil after Close).
func (t *WS) OnDisconnect(f func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDown = f
}

// Emit sends one event scoped to a room.
func (t *WS) Emit(event, room string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", event)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ws == nil || t.closed {
		return domain.ErrTransportClosed
	}
	if err := t.ws.WriteJSON(domain.Frame{Event: event, Room: room, Data: data}); err != nil {
		return errors.Wrapf(domain.ErrTransportClosed, "write %s: %v", event, err)
	}
	return nil
}

func (t *WS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.ws == nil {
		return nil
	}
	t.closed = true
	return t.ws.Close()
}

func (t *WS) readLoop(ws *websocket.Conn) {
	var readErr error
	for {
		var f domain.Frame
		if err := ws.ReadJSON(&f); err != nil {
			readErr = err
			break
		}
		for _, h := range t.handlersFor(f.Event) {
			h(f.Room, f.Data)
		}
	}

	t.mu.Lock()
	wasClosed := t.closed
	t.closed = true
	down := t.onDown
	t.mu.Unlock()

	if wasClosed {
		readErr = nil // deliberate Close, not a drop
	} else {
		jww.WARN.Printf("[WS] connection lost: %v", readErr)
	}
	if down != nil {
		down(readErr)
	}
}

func (t *WS) handlersFor(event string) []domain.Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	hs := t.handlers[event]
	out := make([]domain.Handler, len(hs))
	copy(out, hs)
	return out
}

var _ domain.Transport = (*WS)(nil)
