package router

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"
	"go.uber.org/ratelimit"

	"parley/internal/domain"
)

const sendBuffer = 64

// Server is the websocket edge in front of a Hub. Each accepted
// connection gets a fresh transport identity (a UUID, valid for the life
// of the connection), a read pump that feeds the hub, and a write pump
// draining a bounded queue so one slow client never stalls the rest.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	rate     int // inbound events/sec per connection
}

// NewServer wires a Hub behind an HTTP handler. rate bounds how many
// events per second a single connection may publish; zero disables the
// throttle.
func NewServer(hub *Hub, rate int) *Server {
	return &Server{
		hub:  hub,
		rate: rate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		jww.WARN.Printf("[WS] upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	c := &wsConn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan domain.Frame, sendBuffer),
	}
	if s.rate > 0 {
		c.limiter = ratelimit.New(s.rate)
	} else {
		c.limiter = ratelimit.NewUnlimited()
	}
	jww.INFO.Printf("[WS] %s connected as %s", r.RemoteAddr, c.id)

	go c.writePump()
	s.readPump(c)
}

// readPump processes one connection's inbound frames serially, preserving
// the sender's event order end to end.
func (s *Server) readPump(c *wsConn) {
	defer func() {
		s.hub.Leave(c)
		c.close()
	}()

	// Identity handshake: the transport assigns the identity at connect
	// time and the client learns it from this frame.
	hello, err := json.Marshal(domain.Connected{Identity: c.id})
	if err != nil {
		jww.ERROR.Printf("[WS] marshal connected: %v", err)
		return
	}
	if !c.Send(domain.Frame{Event: domain.EvtConnected, Data: hello}) {
		return
	}

	for {
		var f domain.Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				jww.WARN.Printf("[WS] %s read: %v", c.id, err)
			}
			return
		}
		c.limiter.Take()

		switch f.Event {
		case domain.EvtJoinRoom:
			s.hub.Join(c, f.Room)
		case "":
			jww.DEBUG.Printf("[WS] %s sent frame without event", c.id)
		default:
			s.hub.Publish(c, f.Room, f.Event, f.Data)
		}
	}
}

// wsConn adapts one websocket connection to the hub's Conn.
type wsConn struct {
	id      string
	ws      *websocket.Conn
	send    chan domain.Frame
	limiter ratelimit.Limiter

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) Identity() string { return c.id }

// Send queues a frame without blocking; a closed connection or a full
// queue drops the frame. A publish may still hold this conn after Leave
// ran, hence the closed check.
func (c *wsConn) Send(f domain.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *wsConn) writePump() {
	for f := range c.send {
		if err := c.ws.WriteJSON(f); err != nil {
			jww.DEBUG.Printf("[WS] %s write: %v", c.id, err)
			return
		}
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	jww.INFO.Printf("[WS] %s disconnected", c.id)
}
