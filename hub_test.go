package main

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestHub() *Hub {
	return NewHub(Config{TickPeriod: 10 * time.Millisecond}, nil, zerolog.Nop())
}

func newTestClient(h *Hub) *Client {
	c := &Client{hub: h, send: make(chan []byte, sendBufSize), remoteAddr: "127.0.0.1"}
	h.Register(c)
	return c
}

func TestPerIPConnectionLimit(t *testing.T) {
	h := newTestHub()

	for i := 0; i < maxConnsPerIP; i++ {
		if !h.CanAccept("10.0.0.1") {
			t.Fatalf("connection %d rejected below the per-IP limit", i)
		}
		h.TrackConnect("10.0.0.1")
	}
	if h.CanAccept("10.0.0.1") {
		t.Error("connection accepted past the per-IP limit")
	}
	if !h.CanAccept("10.0.0.2") {
		t.Error("other IPs must not share the limit")
	}

	h.TrackDisconnect("10.0.0.1")
	if !h.CanAccept("10.0.0.1") {
		t.Error("slot not freed after disconnect")
	}
}

func TestTotalConnectionLimit(t *testing.T) {
	h := newTestHub()

	for i := 0; i < maxTotalConns; i++ {
		h.TrackConnect(fmt.Sprintf("10.0.%d.%d", i/250, i%250))
	}
	if h.CanAccept("192.168.0.1") {
		t.Error("connection accepted past the total limit")
	}
	if h.TotalConns() != maxTotalConns {
		t.Errorf("TotalConns = %d, want %d", h.TotalConns(), maxTotalConns)
	}
}

func TestBindUserRejectsDuplicateID(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)

	user, err := h.BindUser(c1, UserData{ID: 1, Name: "ana"})
	if err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if user.Status() != StatusLobby {
		t.Errorf("bound user status = %q, want %q", user.Status(), StatusLobby)
	}

	if _, err := h.BindUser(c2, UserData{ID: 1, Name: "imposter"}); err == nil {
		t.Error("duplicate user ID bound without error")
	}
}

func TestDropFreesUserID(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h)

	if _, err := h.BindUser(c1, UserData{ID: 1, Name: "ana"}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	h.drop(c1)

	c2 := newTestClient(h)
	if _, err := h.BindUser(c2, UserData{ID: 1, Name: "ana"}); err != nil {
		t.Errorf("ID still taken after drop: %v", err)
	}

	// Dropping twice is harmless.
	h.drop(c1)
}

func TestStatusFlipsDuringLobbyBroadcast(t *testing.T) {
	h := NewHub(Config{TickPeriod: time.Millisecond}, nil, zerolog.Nop())
	go h.Run()
	defer h.Stop()

	c1 := newTestClient(h)
	c2 := newTestClient(h)
	u1, err := h.BindUser(c1, UserData{ID: 1, Name: "ana"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	u2, err := h.BindUser(c2, UserData{ID: 2, Name: "bob"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	// Cycle both members through waiting -> game -> lobby while the hub's
	// broadcast loop reads their statuses concurrently.
	for i := 0; i < 50; i++ {
		room, err := h.rooms.AddRoom("duel", u1)
		if err != nil {
			t.Fatalf("add room: %v", err)
		}
		if err := h.rooms.JoinRoom(room.ID, u2); err != nil {
			t.Fatalf("join: %v", err)
		}
		h.rooms.LeaveUser(u1)
		h.rooms.LeaveUser(u2)
	}

	if u1.Status() != StatusLobby || u2.Status() != StatusLobby {
		t.Errorf("statuses = %q/%q, want lobby", u1.Status(), u2.Status())
	}
}

func TestRegisterThenImmediateDrop(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h)
	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", h.ClientCount())
	}

	h.drop(c)
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d, want 0", h.ClientCount())
	}
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("send channel delivered data instead of closing")
		}
	default:
		t.Error("send channel not closed after drop")
	}
}

func TestLobbyBroadcastTargetsLobbyAndWaiting(t *testing.T) {
	h := newTestHub()

	inLobby := newTestClient(h)
	inLobby.user = NewUser(1, "ana")
	waiting := newTestClient(h)
	waiting.user = NewUser(2, "bob")
	waiting.user.SetStatus(StatusWaiting)
	inGame := newTestClient(h)
	inGame.user = NewUser(3, "eve")
	inGame.user.SetStatus(StatusGame)
	unbound := newTestClient(h)

	h.broadcastLobbyData()

	for _, c := range []*Client{inLobby, waiting} {
		select {
		case raw := <-c.send:
			var msg LobbyDataMsg
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("lobby frame: %v", err)
			}
			if msg.Event != EvtLobbyData {
				t.Errorf("event = %q, want %q", msg.Event, EvtLobbyData)
			}
		default:
			t.Errorf("user %d got no lobby frame", c.user.ID)
		}
	}

	for _, c := range []*Client{inGame, unbound} {
		select {
		case <-c.send:
			t.Error("lobby frame sent to a connection the lobby does not own")
		default:
		}
	}
}
