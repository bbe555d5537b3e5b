package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RoomCapacity = 2

// User is a connected player identity. Status is the single source of truth
// for which layer owns the connection's message routing; it is read by the
// connection's read pump and flipped by the room manager, so access goes
// through the locked accessors.
type User struct {
	ID   int64
	Name string

	mu     sync.Mutex
	status UserStatus
}

// NewUser creates a lobby-status user.
func NewUser(id int64, name string) *User {
	return &User{ID: id, Name: name, status: StatusLobby}
}

// Status returns the current routing status.
func (u *User) Status() UserStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

// SetStatus flips the routing status.
func (u *User) SetStatus(s UserStatus) {
	u.mu.Lock()
	u.status = s
	u.mu.Unlock()
}

// Room is a lobby entry. Once IsPlaying flips, the member list is frozen and
// the attached worker owns the match simulation.
type Room struct {
	ID        string
	Name      string
	Users     []*User
	IsPlaying bool

	worker *matchWorker
}

// RoomManager owns the room catalog and the user-to-room index. It never
// touches match-internal state directly; everything past the full->playing
// transition goes through the room's worker channel.
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	userRoom map[int64]*Room

	capacity    int
	tickPeriod  time.Duration
	onGameStart func(users []*User)
	analytics   *Analytics
	log         zerolog.Logger
}

// NewRoomManager creates a manager. onGameStart is invoked exactly once per
// room when it reaches capacity, with the members whose status just flipped.
func NewRoomManager(tickPeriod time.Duration, analytics *Analytics, log zerolog.Logger, onGameStart func(users []*User)) *RoomManager {
	return &RoomManager{
		rooms:       make(map[string]*Room),
		userRoom:    make(map[int64]*Room),
		capacity:    RoomCapacity,
		tickPeriod:  tickPeriod,
		onGameStart: onGameStart,
		analytics:   analytics,
		log:         log,
	}
}

// AddRoom creates an open room owned by the creating user. Only a lobby user
// may open a room; a waiting or in-game user already belongs somewhere.
func (rm *RoomManager) AddRoom(name string, user *User) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if user.Status() != StatusLobby {
		return nil, fmt.Errorf("user %d cannot create a room in status %q", user.ID, user.Status())
	}
	if name == "" {
		name = user.Name + "'s room"
	}

	room := &Room{
		ID:    uuid.NewString(),
		Name:  name,
		Users: []*User{user},
	}
	user.SetStatus(StatusWaiting)
	rm.rooms[room.ID] = room
	rm.userRoom[user.ID] = room

	rm.log.Info().Str("room", room.ID).Int64("user", user.ID).Msg("room created")
	return room, nil
}

// JoinRoom appends a user to an open room. Joining a playing room is a
// silent no-op. Reaching capacity triggers the match start exactly once.
func (rm *RoomManager) JoinRoom(roomID string, user *User) error {
	rm.mu.Lock()

	room, ok := rm.rooms[roomID]
	if !ok {
		rm.mu.Unlock()
		return fmt.Errorf("room %s not found", roomID)
	}
	if room.IsPlaying {
		rm.mu.Unlock()
		return nil
	}
	if user.Status() != StatusLobby {
		rm.mu.Unlock()
		return fmt.Errorf("user %d cannot join a room in status %q", user.ID, user.Status())
	}

	room.Users = append(room.Users, user)
	user.SetStatus(StatusWaiting)
	rm.userRoom[user.ID] = room

	var started []*User
	if len(room.Users) == rm.capacity {
		room.IsPlaying = true
		room.worker = newMatchWorker(NewGame(), rm.tickPeriod)
		roomID := room.ID
		room.worker.OnDeath = func(userID int64) {
			rm.analytics.Track(EvtFighterDeath, userID, roomID)
		}
		go room.worker.Run()
		for _, member := range room.Users {
			member.SetStatus(StatusGame)
		}
		started = append([]*User(nil), room.Users...)
		rm.log.Info().Str("room", room.ID).Msg("match started")
		rm.analytics.Track(EvtMatchStart, 0, room.ID)
		rm.analytics.SetActiveMatches(rm.playingLocked())
	}
	rm.mu.Unlock()

	if started != nil && rm.onGameStart != nil {
		rm.onGameStart(started)
	}
	return nil
}

// LeaveUser detaches a user from its room, if any. An emptied room is
// removed and its worker terminated without draining in-flight ticks.
func (rm *RoomManager) LeaveUser(user *User) {
	rm.mu.Lock()

	room, ok := rm.userRoom[user.ID]
	if !ok {
		rm.mu.Unlock()
		return
	}
	delete(rm.userRoom, user.ID)
	for i, member := range room.Users {
		if member.ID == user.ID {
			room.Users = append(room.Users[:i], room.Users[i+1:]...)
			break
		}
	}
	user.SetStatus(StatusLobby)

	var stop *matchWorker
	if room.worker != nil {
		room.worker.RemoveFighter(user.ID)
	}
	if len(room.Users) == 0 {
		delete(rm.rooms, room.ID)
		stop = room.worker
		rm.log.Info().Str("room", room.ID).Msg("room closed")
		if room.IsPlaying {
			rm.analytics.Track(EvtMatchEnd, 0, room.ID)
			rm.analytics.SetActiveMatches(rm.playingLocked())
		}
	}
	rm.mu.Unlock()

	if stop != nil {
		stop.Stop()
	}
}

// playingLocked counts running matches. Caller holds rm.mu.
func (rm *RoomManager) playingLocked() int {
	n := 0
	for _, room := range rm.rooms {
		if room.IsPlaying {
			n++
		}
	}
	return n
}

// roomWorker resolves the playing room for a user. Failure here is a
// protocol-ordering violation upstream, not an expected runtime condition.
func (rm *RoomManager) roomWorker(user *User) (*Room, *matchWorker, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, ok := rm.userRoom[user.ID]
	if !ok {
		return nil, nil, fmt.Errorf("user %d has no room", user.ID)
	}
	if room.worker == nil {
		return nil, nil, fmt.Errorf("room %s has no running match", room.ID)
	}
	return room, room.worker, nil
}

// AddFighter spawns the user's fighter inside its room's match.
func (rm *RoomManager) AddFighter(user *User) error {
	_, worker, err := rm.roomWorker(user)
	if err != nil {
		return err
	}
	worker.AddFighter(user.ID)
	return nil
}

// UpdateKeyboardInputs relays a raw input snapshot into the user's match.
func (rm *RoomManager) UpdateKeyboardInputs(user *User, inputs KeyboardInputs) error {
	_, worker, err := rm.roomWorker(user)
	if err != nil {
		return err
	}
	worker.SetInputs(user.ID, inputs)
	return nil
}

// GetGameData returns a full snapshot of the user's match.
func (rm *RoomManager) GetGameData(user *User) (GameData, error) {
	_, worker, err := rm.roomWorker(user)
	if err != nil {
		return GameData{}, err
	}
	return worker.Snapshot(), nil
}

// Attach subscribes a user's connection to its match's snapshot broadcast.
func (rm *RoomManager) Attach(user *User, sink Broadcaster) error {
	_, worker, err := rm.roomWorker(user)
	if err != nil {
		return err
	}
	worker.Subscribe(user.ID, sink)
	return nil
}

// LobbyRooms lists the rooms still visible in the lobby. Playing rooms are
// filtered out; their members are gone from lobby routing anyway.
func (rm *RoomManager) LobbyRooms() []RoomData {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := make([]RoomData, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		if room.IsPlaying {
			continue
		}
		rd := RoomData{ID: room.ID, Name: room.Name, Users: make([]UserData, 0, len(room.Users))}
		for _, u := range room.Users {
			rd.Users = append(rd.Users, UserData{ID: u.ID, Name: u.Name, Status: u.Status()})
		}
		rooms = append(rooms, rd)
	}
	return rooms
}

// RoomCount returns the number of rooms, playing included.
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
