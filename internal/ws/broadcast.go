package ws

import (
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/registry"
)

// maxBufferedBytes is the §4.8 back-pressure threshold: a consumer whose
// send buffer exceeds this is disconnected rather than allowed to stall
// the hub.
const maxBufferedBytes = 1 << 20

// role distinguishes the two WS connection kinds from §4.8.
type role int

const (
	roleProducer role = iota
	roleConsumer
)

// client wraps one WS connection. Only consumer clients receive
// broadcasts; producer clients are drained of nothing (they write, the hub
// reads).
type client struct {
	conn         *websocket.Conn
	role         role
	send         chan []byte
	bufferedSize atomic.Int64
	closeOnce    sync.Once
}

func newClient(conn *websocket.Conn, r role) *client {
	return &client{conn: conn, role: r, send: make(chan []byte, 256)}
}

func (c *client) writePump(log zerolog.Logger) {
	defer c.conn.Close()
	for msg := range c.send {
		c.bufferedSize.Add(-int64(len(msg)))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub is the single broadcast point for all consumer WS connections. It
// receives registry deltas via its Notify method (satisfying
// registry.Notifier) and fans each one out as a sequenced WSMessage,
// applying the privacy filter and per-connection ordering per §4.8.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	privacy *registry.PrivacyFilter
	seq     atomic.Uint64
	log     zerolog.Logger

	focusedID string
}

// NewHub builds an empty Hub. SetPrivacyFilter should be called once
// config is loaded, before any client connects.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[*client]bool), privacy: &registry.PrivacyFilter{}, log: log}
}

// SetPrivacyFilter installs the filter applied to every outgoing session.
func (h *Hub) SetPrivacyFilter(f *registry.PrivacyFilter) {
	h.mu.Lock()
	h.privacy = f
	h.mu.Unlock()
}

func (h *Hub) privacyFilter() *registry.PrivacyFilter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.privacy
}

// AddConsumer registers a new consumer connection and pushes its initial
// snapshot, per §4.8.
func (h *Hub) AddConsumer(conn *websocket.Conn, sessions []*registry.Session, focusedID string) *client {
	c := newClient(conn, roleConsumer)
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	go c.writePump(h.log)

	h.sendTo(c, WSMessage{
		Type: MsgInitialState,
		Payload: InitialStatePayload{
			Sessions:  h.privacyFilter().FilterSlice(sessions),
			FocusedID: focusedID,
		},
	})
	return c
}

// AddProducer registers a producer connection. Producers are not
// broadcast to; the hub only needs to track them for cleanup.
func (h *Hub) AddProducer(conn *websocket.Conn) *client {
	c := newClient(conn, roleProducer)
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

// Remove drops a connection from the hub.
func (h *Hub) Remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// Notify implements registry.Notifier: a batch of changed/removed sessions
// committed atomically in the registry, broadcast here as ordered deltas.
func (h *Hub) Notify(changed []*registry.Session, removed []string) {
	if len(changed) > 0 {
		filtered := h.privacyFilter().FilterSlice(changed)
		if len(filtered) > 0 {
			h.broadcast(WSMessage{Type: MsgSessionUpdate, Payload: SessionUpdatePayload{Sessions: filtered}})
		}
	}
	if len(removed) > 0 {
		h.broadcast(WSMessage{Type: MsgSessionEnded, Payload: SessionEndedPayload{SessionIDs: removed}})
	}
}

// NotifyFocusChanged broadcasts a focus_changed delta.
func (h *Hub) NotifyFocusChanged(sessionID string) {
	h.broadcast(WSMessage{Type: MsgFocusChanged, Payload: FocusChangedPayload{SessionID: sessionID}})
}

// NotifyNotificationFired broadcasts a fired NotificationItem. payload is
// an interface{} so this package doesn't need to import internal/notify.
func (h *Hub) NotifyNotificationFired(payload interface{}) {
	h.broadcast(WSMessage{Type: MsgNotificationFired, Payload: payload})
}

// SendResult delivers a paired *_result response to a single client.
func (h *Hub) SendResult(c *client, msgType MessageType, result ControlResult) {
	h.sendTo(c, WSMessage{Type: msgType, Payload: result})
}

func (h *Hub) broadcast(msg WSMessage) {
	msg.Seq = h.seq.Add(1)
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(msg.Type)).Msg("ws broadcast marshal failed")
		return
	}

	h.mu.RLock()
	consumers := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.role == roleConsumer {
			consumers = append(consumers, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range consumers {
		h.deliver(c, data)
	}
}

func (h *Hub) sendTo(c *client, msg WSMessage) {
	msg.Seq = h.seq.Add(1)
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(msg.Type)).Msg("ws send marshal failed")
		return
	}
	h.deliver(c, data)
}

// deliver enqueues data for c, disconnecting it if its buffered bytes
// would exceed maxBufferedBytes — the §4.8 slow-consumer policy.
func (h *Hub) deliver(c *client, data []byte) {
	if c.bufferedSize.Load()+int64(len(data)) > maxBufferedBytes {
		h.log.Warn().Msg("ws consumer exceeded buffer limit, disconnecting")
		h.Remove(c)
		return
	}
	c.bufferedSize.Add(int64(len(data)))
	select {
	case c.send <- data:
	default:
		h.log.Warn().Msg("ws consumer send channel full, disconnecting")
		c.bufferedSize.Add(-int64(len(data)))
		h.Remove(c)
	}
}

// ConsumerCount returns the number of connected consumer clients.
func (h *Hub) ConsumerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.role == roleConsumer {
			n++
		}
	}
	return n
}
