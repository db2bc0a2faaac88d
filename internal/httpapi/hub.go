package httpapi

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/pkg/mvproto"
)

const (
	wsWriteWait  = 10 * time.Second
	wsSendBuffer = 16
)

// hub fans status events out to every connected /ws client. Push-only: the
// feed never reads anything meaningful from a client, it just notices when
// one goes away.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{clients: map[*wsClient]struct{}{}}
}

type wsClient struct {
	conn *websocket.Conn
	send chan mvproto.StatusEvent
}

func (h *hub) register(conn *websocket.Conn) {
	c := &wsClient{conn: conn, send: make(chan mvproto.StatusEvent, wsSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// readPump's only job is noticing a closed connection; this feed is
// push-only so any inbound message is discarded.
func (h *hub) readPump(c *wsClient) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writePump(c *wsClient) {
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteJSON(event); err != nil {
			h.unregister(c)
			return
		}
	}
}

// broadcast fans event out to every connected client, dropping it for any
// client whose send buffer is full rather than blocking the caller.
func (h *hub) broadcast(event mvproto.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			log.Warn("websocket client send buffer full, dropping status event")
		}
	}
}
