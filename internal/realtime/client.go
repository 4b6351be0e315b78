package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vigilia-platform/iotcore/internal/logging"
)

// client is one authenticated WebSocket connection and its local room
// membership. Join/leave is explicit and per-connection: the client sends
// a roomCommand frame, never an implicit subscribe-by-fetch.
type client struct {
	bus  *Bus
	conn *websocket.Conn
	send chan []byte

	rooms map[string]struct{}
	log   *logging.Logger
}

// roomCommand is the inbound control frame a client sends to join or leave
// a room beyond the default "authenticated" one.
type roomCommand struct {
	Action string `json:"action"` // "join" or "leave"
	Room   string `json:"room"`
}

func (c *client) readPump() {
	defer func() {
		c.bus.leaveAll(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd roomCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "join":
			if cmd.Room != "" {
				c.bus.join(c, cmd.Room)
			}
		case "leave":
			if cmd.Room != "" {
				c.bus.leave(c, cmd.Room)
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
