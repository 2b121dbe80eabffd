package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/internal/events"
)

// frame is the envelope pushed to every connected dashboard client.
// Type selects the subject the payload came from: "signal",
// "performance", or "error".
type frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// hub relays Manager subject emissions to connected websocket clients,
// grounded on polymarket-mm's Hub/Client register-unregister-broadcast
// pattern, adapted from a single dashboard-snapshot payload to a
// multiplexed relay over the engine's Signal/Performance/Error subjects.
type hub struct {
	upgrader   websocket.Upgrader
	log        zerolog.Logger
	mu         sync.RWMutex
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
}

type wsClient struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

func newHub(log zerolog.Logger) *hub {
	h := &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:        log.With().Str("component", "server.hub").Logger(),
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*wsClient]bool)
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					go func(c *wsClient) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// attach subscribes the hub to every subject a dashboard cares about.
// Subscriptions live for the process lifetime; there is no unsubscribe
// since the hub and the Manager share that lifetime.
func (h *hub) attach(ev *events.Manager) {
	if ev == nil {
		return
	}
	ev.Signal.Subscribe(func(tr domain.TickResult) {
		h.publish("signal", tr)
	})
	ev.Performance.Subscribe(func(pe events.PerformanceEvent) {
		h.publish("performance", pe)
	})
	ev.Error.Subscribe(func(e events.ErrorEvent) {
		h.publish("error", errorFramePayload(e))
	})
}

type errorFramePayload struct {
	events.ErrorEvent
}

// MarshalJSON flattens the wrapped error to a string since error
// values do not marshal to JSON on their own.
func (e errorFramePayload) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Module string `json:"module"`
		Error  string `json:"error"`
	}{Module: e.Module, Error: msg})
}

func (h *hub) publish(kind string, data any) {
	payload, err := json.Marshal(frame{Type: kind, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("kind", kind).Msg("failed to marshal dashboard frame")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn().Str("kind", kind).Msg("broadcast channel full, dropping frame")
	}
}

func (h *hub) close() {
	close(h.done)
}

func (h *hub) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (c *wsClient) readPump() {
	defer func() {
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
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// dashboard connections are read-only; inbound messages are ignored.
	}
}
