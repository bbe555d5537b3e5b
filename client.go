package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 200
	maxNameLen        = 16
)

// Client represents one WebSocket connection. Until the first `connection`
// frame binds a user, every other event is a protocol violation.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string

	user   *User
	binary bool // client asked for msgpack game snapshots

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads frames until the connection dies or the client violates
// the protocol. Violations end only this session, never the process.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("addr", c.remoteAddr).Msg("ws read error")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.hub.log.Warn().Str("addr", c.remoteAddr).Msg("rate limit exceeded, disconnecting")
			break
		}

		if err := c.handleMessage(message); err != nil {
			c.fail(err)
			break
		}
	}
}

// WritePump writes queued frames and keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a frame queued by SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON marshals and queues a text frame.
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error().Err(err).Msg("marshal error")
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes as a text frame. A slow client drops
// frames instead of stalling the sender.
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}

// SendBinary queues pre-marshaled bytes as a binary frame, 0xFF-prefixed so
// WritePump can tell it apart from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// WantsBinary reports whether this client opted into msgpack snapshots.
func (c *Client) WantsBinary() bool {
	return c.binary
}

// fail sends a terminal error frame. The caller breaks the read loop next.
func (c *Client) fail(err error) {
	c.hub.log.Warn().Err(err).Str("addr", c.remoteAddr).Msg("closing session")
	c.SendJSON(ErrorMsg{Event: EvtError, Msg: err.Error()})
}

// handleMessage routes one frame. Routing is keyed off the bound user's
// status: the lobby layer owns lobby/waiting connections, the room manager's
// match path owns in-game ones. A non-nil error terminates the session.
func (c *Client) handleMessage(raw []byte) error {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return fmt.Errorf("malformed frame: %w", err)
	}

	if c.user == nil {
		if env.Event != EvtConnection {
			return fmt.Errorf("first event must be %q, got %q", EvtConnection, env.Event)
		}
		return c.handleConnection(env.Raw)
	}

	switch status := c.user.Status(); status {
	case StatusLobby, StatusWaiting:
		return c.handleLobbyEvent(env)
	case StatusGame:
		return c.handleGameEvent(env)
	default:
		return fmt.Errorf("no routing for status %q", status)
	}
}

func (c *Client) handleConnection(raw []byte) error {
	var msg ConnectionMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("malformed connection event: %w", err)
	}
	if msg.UserConnecting.ID == 0 || msg.UserConnecting.Name == "" {
		return fmt.Errorf("connection event missing user identity")
	}
	name := msg.UserConnecting.Name
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	// BindUser assigns c.user under the hub lock; the single write site keeps
	// the hub's broadcast reads coherent.
	if _, err := c.hub.BindUser(c, UserData{ID: msg.UserConnecting.ID, Name: name}); err != nil {
		return err
	}
	c.binary = msg.Binary
	return nil
}

func (c *Client) handleLobbyEvent(env InEnvelope) error {
	switch env.Event {
	case EvtCreateRoom:
		var msg CreateRoomMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			return fmt.Errorf("malformed %s: %w", EvtCreateRoom, err)
		}
		_, err := c.hub.rooms.AddRoom(msg.RoomName, c.user)
		return err

	case EvtJoinRoom:
		var msg JoinRoomMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			return fmt.Errorf("malformed %s: %w", EvtJoinRoom, err)
		}
		return c.hub.rooms.JoinRoom(msg.RoomID, c.user)

	case EvtLeaveRoom:
		c.hub.rooms.LeaveUser(c.user)
		return nil

	default:
		return fmt.Errorf("unexpected lobby event %q", env.Event)
	}
}

func (c *Client) handleGameEvent(env InEnvelope) error {
	switch env.Event {
	case EvtCreateFighter:
		if err := c.hub.rooms.AddFighter(c.user); err != nil {
			return err
		}
		return c.hub.rooms.Attach(c.user, c)

	case EvtKeyboardInputs:
		var msg KeyboardInputsMsg
		if err := json.Unmarshal(env.Raw, &msg); err != nil {
			return fmt.Errorf("malformed %s: %w", EvtKeyboardInputs, err)
		}
		var inputs KeyboardInputs
		if err := json.Unmarshal([]byte(msg.KeyboardInputs), &inputs); err != nil {
			return fmt.Errorf("malformed keyboard inputs: %w", err)
		}
		return c.hub.rooms.UpdateKeyboardInputs(c.user, inputs)

	case EvtLeaveRoom:
		c.hub.rooms.LeaveUser(c.user)
		return nil

	default:
		return fmt.Errorf("unexpected game event %q", env.Event)
	}
}
