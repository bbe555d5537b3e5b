package main

import "encoding/json"

// Client -> Server events
const (
	EvtConnection     = "connection"
	EvtCreateRoom     = "room:create"
	EvtJoinRoom       = "room:join"
	EvtLeaveRoom      = "room:leave"
	EvtCreateFighter  = "fighter:create"
	EvtKeyboardInputs = "keyboard-inputs:update"
)

// Server -> Client events
const (
	EvtLobbyData = "lobby-data:update"
	EvtGameData  = "game-data:update"
	EvtGameStart = "game:start"
	EvtError     = "error"
)

// InEnvelope peeks at the event discriminator. json.RawMessage keeps the
// payload for a second, type-directed decode.
type InEnvelope struct {
	Event string          `json:"event"`
	Raw   json.RawMessage `json:"-"`
}

// DecodeEnvelope splits an incoming frame into its event tag and raw bytes.
func DecodeEnvelope(raw []byte) (InEnvelope, error) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, err
	}
	env.Raw = raw
	return env, nil
}

// UserStatus is the routing key for a connection. Only the room manager and
// the match-start transition mutate it.
type UserStatus string

const (
	StatusLogin   UserStatus = "login"
	StatusLobby   UserStatus = "lobby"
	StatusWaiting UserStatus = "waiting"
	StatusGame    UserStatus = "game"
)

// UserData is a user's public identity as seen in lobby snapshots.
type UserData struct {
	ID     int64      `json:"id" msgpack:"id"`
	Name   string     `json:"name" msgpack:"name"`
	Status UserStatus `json:"status" msgpack:"status"`
}

// ConnectionMsg must be the first frame on a new connection. Binary opts the
// client into msgpack game snapshots instead of JSON.
type ConnectionMsg struct {
	Event          string   `json:"event"`
	UserConnecting UserData `json:"userConnecting"`
	Binary         bool     `json:"binary,omitempty"`
}

// CreateRoomMsg opens a lobby room. RoomName is optional.
type CreateRoomMsg struct {
	Event    string `json:"event"`
	RoomName string `json:"roomName,omitempty"`
}

// JoinRoomMsg joins an existing open room.
type JoinRoomMsg struct {
	Event  string `json:"event"`
	RoomID string `json:"roomId"`
}

// KeyboardInputsMsg carries the client's held-key state as a serialized
// key/bool map, opaque to everything but the simulation.
type KeyboardInputsMsg struct {
	Event          string `json:"event"`
	KeyboardInputs string `json:"keyboardInputs"`
}

// FighterStatus is the per-fighter slice of a game snapshot.
type FighterStatus struct {
	ID            int64         `json:"id" msgpack:"id"`
	HP            int           `json:"HP" msgpack:"HP"`
	Score         int           `json:"score" msgpack:"score"`
	Position      Vec3          `json:"position" msgpack:"position"`
	Rotation      Vec3          `json:"rotation" msgpack:"rotation"`
	IsDead        bool          `json:"isDead" msgpack:"isDead"`
	CurrentAction FighterAction `json:"currentAction" msgpack:"currentAction"`
}

// BulletStatus is the per-bullet slice of a game snapshot.
type BulletStatus struct {
	ID       int64 `json:"id" msgpack:"id"`
	Position Vec3  `json:"position" msgpack:"position"`
	Rotation Vec3  `json:"rotation" msgpack:"rotation"`
}

// ObstacleStatus is the per-obstacle slice of a game snapshot.
type ObstacleStatus struct {
	ID       int64 `json:"id" msgpack:"id"`
	Position Vec3  `json:"position" msgpack:"position"`
	Rotation Vec3  `json:"rotation" msgpack:"rotation"`
}

// GameData is one full, non-incremental world snapshot. Clients reconcile by
// id: add new ids, update matching ids, drop ids no longer present.
type GameData struct {
	FighterStatuses  []FighterStatus  `json:"fighterStatuses" msgpack:"fighterStatuses"`
	BulletStatuses   []BulletStatus   `json:"bulletStatuses" msgpack:"bulletStatuses"`
	ObstacleStatuses []ObstacleStatus `json:"obstacleStatuses" msgpack:"obstacleStatuses"`
}

// GameDataMsg wraps a snapshot for the wire.
type GameDataMsg struct {
	Event    string   `json:"event" msgpack:"event"`
	GameData GameData `json:"gameData" msgpack:"gameData"`
}

// RoomData is a room's lobby-visible state.
type RoomData struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Users []UserData `json:"users"`
}

// LobbyData lists the joinable (non-playing) rooms.
type LobbyData struct {
	Rooms []RoomData `json:"rooms"`
}

// LobbyDataMsg wraps a lobby snapshot for the wire.
type LobbyDataMsg struct {
	Event     string    `json:"event"`
	LobbyData LobbyData `json:"lobbyData"`
}

// GameStartMsg is edge-triggered: sent once to each member when their room
// fills and the match begins.
type GameStartMsg struct {
	Event string `json:"event"`
}

// ErrorMsg is the last frame a misbehaving session receives before close.
type ErrorMsg struct {
	Event string `json:"event"`
	Msg   string `json:"msg"`
}
