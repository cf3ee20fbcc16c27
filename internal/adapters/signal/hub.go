package signal

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tobiasps/signalmaster/internal/app"
	"github.com/tobiasps/signalmaster/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

var _ app.Emitter = (*Hub)(nil)

// frame is the wire shape of every event in both directions, mirroring the
// (event, argument) pairs of the original protocol.
type frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Conn wraps one websocket with a buffered, non-blocking send side.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, sendBuffer int) *Conn {
	return &Conn{ws: ws, send: make(chan []byte, sendBuffer)}
}

func (c *Conn) TrySend(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
}

// Hub tracks live connections and implements app.Emitter. Delivery drops
// on backpressure rather than blocking the room machinery.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ClientID]*Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.ClientID]*Conn)}
}

func (h *Hub) add(id domain.ClientID, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = c
}

func (h *Hub) remove(id domain.ClientID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

func (h *Hub) ToClient(id domain.ClientID, event string, payload any) {
	data, err := json.Marshal(frame{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.signal").Str("event", event).Msg("marshal frame")
		return
	}
	h.deliver(id, event, data)
}

func (h *Hub) Broadcast(ids []domain.ClientID, event string, payload any) {
	data, err := json.Marshal(frame{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.signal").Str("event", event).Msg("marshal frame")
		return
	}
	for _, id := range ids {
		h.deliver(id, event, data)
	}
}

func (h *Hub) deliver(id domain.ClientID, event string, data []byte) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "adapters.signal").Str("id", string(id)).Str("event", event).Msg("dropped outbound event")
	}
}
