// Package ws implements the thin WebSocket edge (§6): one handler relaying
// a session's eventbus events to connected clients, and one handler
// walking a TriggerSequence in real time for the Sequencer transport. It
// is deliberately minimal — the full HTTP/WS surface is externally
// maintained (§6); this package exists only to exercise the core's
// contract with it, grounded on the teacher's websocket_service.go
// register/unregister/broadcast hub shape.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/eventbus"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionHub relays one session's published Events to every client
// connected to that session's socket.
type SessionHub struct {
	bus    *eventbus.Bus
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan entities.Event
}

// NewSessionHub wires a hub to bus; callers register it per session id via
// HandleSession.
func NewSessionHub(bus *eventbus.Bus, logger *zap.Logger) *SessionHub {
	return &SessionHub{bus: bus, logger: logger, clients: make(map[*client]struct{})}
}

// HandleSession upgrades the request to a WebSocket and streams events
// published on sessionID to it until the client disconnects.
func (h *SessionHub) HandleSession(c *gin.Context, sessionID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("session_id", sessionID))
		return
	}

	cl := &client{conn: conn, send: make(chan entities.Event, 32)}
	unsubscribe := h.bus.Subscribe(sessionID, func(event entities.Event) {
		select {
		case cl.send <- event:
		default:
			h.logger.Warn("dropping event for slow websocket client", zap.String("session_id", sessionID))
		}
	})
	defer unsubscribe()

	go h.readLoop(conn)
	h.writeLoop(cl)
}

// readLoop discards inbound messages until a read fails, then closes the
// connection. It sets no read deadline, so a dead peer is noticed only
// once a write in writeLoop fails and closes the connection.
func (h *SessionHub) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *SessionHub) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cl.conn.Close()

	for {
		select {
		case event, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
