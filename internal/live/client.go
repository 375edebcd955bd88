package live

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siwarga/rwrt-backend/internal/logging"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 32
)

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	sess       rbac.Session
	collection store.Collection
	send       chan []byte

	mu     sync.Mutex
	seen   map[string]bool
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, sess rbac.Session, c store.Collection) *client {
	return &client{
		hub:        h,
		conn:       conn,
		sess:       sess,
		collection: c,
		send:       make(chan []byte, sendBuffer),
		seen:       make(map[string]bool),
	}
}

func (c *client) remember(id string) {
	c.mu.Lock()
	c.seen[id] = true
	c.mu.Unlock()
}

// forget reports whether the client knew about id.
func (c *client) forget(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.seen[id]
	delete(c.seen, id)
	return ok
}

func (c *client) reset(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.seen[id] = true
	}
}

// sendEvent never blocks the feed; a client that cannot keep up is dropped.
func (c *client) sendEvent(e Event) {
	data, err := encode(e)
	if err != nil {
		logging.Error("Failed to encode live event", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		logging.Warn("Live client send buffer full, disconnecting", "user_id", c.sess.UserID)
		c.closed = true
		_ = c.conn.Close()
	}
}

// readPump only watches for the peer going away; clients do not send commands.
func (c *client) readPump() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("Live socket error", "user_id", c.sess.UserID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
