package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sketchwars/internal/logger"
	"sketchwars/internal/wire"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxMessageSize = 1 << 20 // canvas snapshots travel as data URLs
)

// Client is one websocket connection. A connection can hold more than one
// seat (local mode puts both players on the same device), so seats are
// tracked by the room, keyed on ConnID.
type Client struct {
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte

	Hub  *Hub
	Room *Room

	// ResumeID carries a verified seat identity from the token presented
	// at upgrade time; empty for fresh connections.
	ResumeID string

	done     chan struct{}
	doneOnce sync.Once
}

func NewClient(conn *websocket.Conn, hub *Hub, resumeID string) *Client {
	return &Client{
		ConnID:   newConnID(),
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
		ResumeID: resumeID,
		done:     make(chan struct{}),
	}
}

// Run drives the connection: the first frame must be join_room, which
// picks the room; everything after flows through the room's inbound
// channel so events stay ordered per room.
func (c *Client) Run() {
	go c.writePump()
	defer c.close()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("ws read failed", "conn", c.ConnID, "error", err)
			}
			if c.Room != nil {
				select {
				case c.Room.Disconnect <- c:
				case <-c.Room.Done():
				}
			}
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("dropping unparseable frame", "conn", c.ConnID, "error", err)
			continue
		}

		if c.Room == nil {
			if env.Type != wire.EventJoinRoom {
				logger.Warn("frame before join_room", "conn", c.ConnID, "type", env.Type)
				continue
			}
			var p wire.JoinRoom
			if err := wire.Decode(env, &p); err != nil {
				logger.Warn("bad join_room", "conn", c.ConnID, "error", err)
				c.SendEvent(wire.EventError, wire.ErrorEvent{Message: err.Error()})
				continue
			}
			room, err := c.Hub.AssignRoom(p.RoomID, p.GameType)
			if err != nil {
				logger.Warn("room assignment failed", "conn", c.ConnID, "error", err)
				c.SendEvent(wire.EventError, wire.ErrorEvent{Message: err.Error()})
				continue
			}
			c.Room = room
			select {
			case room.Register <- joinRequest{client: c, cachedPlayerID: p.CachedPlayerID}:
			case <-room.Done():
				c.Room = nil
				c.SendEvent(wire.EventError, wire.ErrorEvent{Message: "room closed"})
			}
			continue
		}

		select {
		case c.Room.Inbound <- inboundEvent{client: c, env: env}:
		case <-c.Room.Done():
			return
		}
	}
}

// SendEvent marshals and queues one event; a stalled connection drops it.
func (c *Client) SendEvent(eventType string, payload any) {
	raw, err := wire.Encode(eventType, payload)
	if err != nil {
		logger.Error("encode event failed", "type", eventType, "error", err)
		return
	}

	select {
	case c.Send <- raw:
	case <-c.done:
	default:
		logger.Warn("send queue full, dropping event", "conn", c.ConnID, "type", eventType)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case raw := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) close() {
	c.doneOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}

func newConnID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "conn-" + hex.EncodeToString([]byte(time.Now().String()))[:12]
	}
	return "conn-" + hex.EncodeToString(b)
}
