package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/thing-core/internal/infrastructure/config"
	"github.com/nerrad567/thing-core/internal/infrastructure/logging"
	"github.com/nerrad567/thing-core/internal/thing"
)

// wsMessage is the frame sent to websocket clients for dispatched events.
type wsMessage struct {
	MessageType string         `json:"messageType"`
	Data        map[string]any `json:"data"`
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The gateway serves local UIs; origin restrictions are left to
		// the reverse proxy in deployments that need them.
		return true
	},
}

// wsSession is a live websocket connection bound to a single thing.
//
// It doubles as the thing's Session handle (state tracking, close
// protocol) and as a hub subscriber relaying dispatched events to the
// client as event frames.
type wsSession struct {
	conn   *websocket.Conn
	send   chan []byte
	logger *logging.Logger

	t     *thing.Thing
	subID thing.SubscriptionID

	mu    sync.RWMutex
	state thing.SessionState

	closeOnce sync.Once
}

// State reports the session's lifecycle state.
func (c *wsSession) State() thing.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// setState transitions the session's lifecycle state.
func (c *wsSession) setState(s thing.SessionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Close requests closure of the session. It is safe to call from any
// goroutine, and more than once; the read pump observes the closed
// connection and performs the teardown.
func (c *wsSession) Close() error {
	c.closeOnce.Do(func() {
		c.setState(thing.SessionClosing)
		//nolint:errcheck // Best-effort close handshake
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "thing removed"),
			time.Now().Add(time.Second),
		)
		c.conn.Close()
	})
	return nil
}

// handleWebSocket upgrades the connection and binds it to the thing as a
// session and event subscriber.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "thing_id", t.ID(), "error", err)
		return
	}

	client := &wsSession{
		conn:   conn,
		send:   make(chan []byte, s.wsCfg.SendBuffer),
		logger: s.logger,
		t:      t,
		state:  thing.SessionOpen,
	}

	// Relay dispatched events to this client. The subscription lives for
	// the connection; the read pump removes it on disconnect.
	client.subID = t.AddEventSubscription(client.relayEvent)
	t.RegisterSession(client)

	s.logger.Debug("websocket session opened", "thing_id", t.ID())

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// relayEvent encodes a dispatched event as an event frame and queues it
// for the client. A full buffer drops the frame rather than blocking the
// dispatching goroutine.
func (c *wsSession) relayEvent(ev thing.EventRecord) error {
	frame := wsMessage{
		MessageType: "event",
		Data: map[string]any{
			ev.Name: map[string]any{
				"data":      ev.Data,
				"timestamp": ev.Timestamp.Format(time.RFC3339),
			},
		},
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.trySend(data)
	return nil
}

// trySend queues data for the write pump. Closed channels (disconnect
// racing a dispatch) and full buffers are silently absorbed.
func (c *wsSession) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// readPump reads from the connection until it dies, then tears the
// session down: unsubscribes from the hub, marks the session closed and
// closes the send channel so the write pump exits.
func (c *wsSession) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.t.RemoveEventSubscription(c.subID)
		c.setState(thing.SessionClosed)
		c.conn.Close()
		close(c.send)
		c.logger.Debug("websocket session closed", "thing_id", c.t.ID())
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		// Inbound messages keep the connection alive but carry no
		// commands; the session is a one-way event feed.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "thing_id", c.t.ID(), "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
}

// writePump writes queued frames and protocol pings to the connection.
func (c *wsSession) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Read pump closed the channel
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
