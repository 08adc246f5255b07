package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Photos arrive inline as base64, so inbound frames can be large.
	maxMessageSize = 8 << 20
)

// envelope is the wire frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// client is one connected chat widget.
type client struct {
	gateway *Gateway
	conn    *websocket.Conn
	userID  string
	send    chan []byte
}

// emit queues one outbound frame, dropping it when the client is backed up.
func (c *client) emit(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("encode %s frame for %s failed: %v", event, c.userID, err)
		return
	}
	frame, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Printf("encode envelope for %s failed: %v", c.userID, err)
		return
	}
	select {
	case c.send <- frame:
	default:
		log.Printf("drop %s frame for slow client %s", event, c.userID)
	}
}

func (c *client) readPump() {
	defer c.gateway.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read from %s failed: %v", c.userID, err)
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("bad frame from %s: %v", c.userID, err)
			continue
		}
		c.gateway.route(c, env)
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
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
