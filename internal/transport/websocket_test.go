package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parley/internal/domain"
	"parley/internal/router"
)

func startRelay(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(router.NewServer(router.NewHub(), 0))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, url string) *WS {
	t.Helper()
	ws := NewWS(url)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestConnectAssignsDistinctIdentities(t *testing.T) {
	url := startRelay(t)
	a := connect(t, url)
	b := connect(t, url)

	if a.Identity() == "" || b.Identity() == "" {
		t.Fatal("identity empty after Connect")
	}
	if a.Identity() == b.Identity() {
		t.Fatalf("both connections got identity %s", a.Identity())
	}
}

func TestRoomRoundTrip(t *testing.T) {
	url := startRelay(t)

	a := NewWS(url)
	connected := make(chan domain.UserConnected, 1)
	a.On(domain.EvtUserConnected, func(_ string, data json.RawMessage) {
		var ev domain.UserConnected
		if err := json.Unmarshal(data, &ev); err == nil {
			connected <- ev
		}
	})
	got := make(chan string, 1)
	a.On("send-message", func(room string, data json.RawMessage) {
		got <- room
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("a.Connect: %v", err)
	}
	defer a.Close()

	join := func(ws *WS) {
		ev := domain.JoinRoom{RoomID: "r1", Identity: ws.Identity()}
		if err := ws.Emit(domain.EvtJoinRoom, "r1", ev); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	join(a)

	b := connect(t, url)
	join(b)

	select {
	case ev := <-connected:
		if ev.Identity != b.Identity() {
			t.Fatalf("user-connected identity: got %s, want %s", ev.Identity, b.Identity())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no user-connected at existing member")
	}

	if err := b.Emit("send-message", "r1", map[string]string{"id": "m1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	select {
	case room := <-got:
		if room != "r1" {
			t.Fatalf("delivered room: got %s, want r1", room)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message never reached the other member")
	}
}

func TestSenderDoesNotEchoOwnEvents(t *testing.T) {
	url := startRelay(t)

	a := NewWS(url)
	echo := make(chan struct{}, 1)
	a.On("send-message", func(string, json.RawMessage) { echo <- struct{}{} })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer a.Close()

	if err := a.Emit(domain.EvtJoinRoom, "r1", domain.JoinRoom{RoomID: "r1", Identity: a.Identity()}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := a.Emit("send-message", "r1", map[string]string{"id": "m1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	select {
	case <-echo:
		t.Fatal("sender received its own event")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEmitAfterCloseFails(t *testing.T) {
	url := startRelay(t)
	a := connect(t, url)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := a.Emit("send-message", "r1", map[string]string{"id": "m1"})
	if !errors.Is(err, domain.ErrTransportClosed) {
		t.Fatalf("got err %v, want ErrTransportClosed", err)
	}
}

func TestDisconnectCallbackDistinguishesDrop(t *testing.T) {
	url := startRelay(t)

	a := NewWS(url)
	down := make(chan error, 1)
	a.OnDisconnect(func(err error) { down <- err })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-down:
		if err != nil {
			t.Fatalf("deliberate close reported as drop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect callback never fired")
	}
}
