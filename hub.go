package main

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub is the explicit connection and user registry. The room manager gets a
// reference to it through the start callback instead of reaching into any
// ambient socket state.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	users   map[int64]*Client // bound userID -> connection

	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	rooms     *RoomManager
	analytics *Analytics
	log       zerolog.Logger

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	lobbyPeriod time.Duration
}

// NewHub wires the registry, room manager, and broadcast cadence together.
func NewHub(cfg Config, analytics *Analytics, log zerolog.Logger) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		users:       make(map[int64]*Client),
		unregister:  make(chan *Client, 64),
		quit:        make(chan struct{}),
		analytics:   analytics,
		log:         log,
		ipConns:     make(map[string]int),
		lobbyPeriod: cfg.TickPeriod,
	}
	h.rooms = NewRoomManager(cfg.TickPeriod, analytics, log, h.notifyGameStart)
	return h
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Register adds a new connection to the registry. Synchronous, so a client's
// registration is always observable before anything its pumps do, including
// an immediate disconnect.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// Run processes unregister events and drives the lobby broadcast on the same
// fixed cadence the match workers tick at.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.lobbyPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return

		case client := <-h.unregister:
			h.drop(client)

		case <-ticker.C:
			h.broadcastLobbyData()
		}
	}
}

// Stop halts the hub loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// BindUser attaches an identity to a connection on its first frame. A user
// ID already bound elsewhere is a client-contract violation.
func (h *Hub) BindUser(client *Client, data UserData) (*User, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, taken := h.users[data.ID]; taken {
		return nil, fmt.Errorf("user %d is already connected", data.ID)
	}
	user := NewUser(data.ID, data.Name)
	h.users[data.ID] = client
	client.user = user
	h.analytics.Track(EvtSessionStart, data.ID, "")
	h.analytics.SetLiveUsers(len(h.users))
	h.log.Info().Int64("user", data.ID).Str("name", data.Name).Msg("user bound")
	return user, nil
}

// drop removes a dead connection and unwinds its user from any room.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	if client.user != nil {
		delete(h.users, client.user.ID)
		h.analytics.SetLiveUsers(len(h.users))
	}
	close(client.send)
	h.mu.Unlock()

	if client.user != nil {
		h.rooms.LeaveUser(client.user)
		h.analytics.Track(EvtSessionEnd, client.user.ID, "")
	}
}

// notifyGameStart delivers the edge-triggered start event to each member of
// a freshly full room.
func (h *Hub) notifyGameStart(users []*User) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, u := range users {
		if client, ok := h.users[u.ID]; ok {
			client.SendJSON(GameStartMsg{Event: EvtGameStart})
		}
	}
}

// broadcastLobbyData pushes the room catalog to every connection still owned
// by the lobby layer. Playing rooms are filtered by the manager.
func (h *Hub) broadcastLobbyData() {
	msg := LobbyDataMsg{Event: EvtLobbyData, LobbyData: LobbyData{Rooms: h.rooms.LobbyRooms()}}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		u := client.user
		if u == nil {
			continue
		}
		if status := u.Status(); status == StatusLobby || status == StatusWaiting {
			client.SendRaw(data)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count.
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
