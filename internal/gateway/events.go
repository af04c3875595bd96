package gateway

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tarpitlabs/tarpit/internal/engine"
	"github.com/tarpitlabs/tarpit/internal/logging"
)

// EventFrame is one event on the live feed. Seq is monotonic for the
// lifetime of the hub so subscribers can spot gaps.
type EventFrame struct {
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"ts"`
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	Turn      int            `json:"turn"`
	Data      map[string]any `json:"data,omitempty"`
}

const (
	subscriberBuffer = 32
	writeTimeout     = 10 * time.Second
)

// Hub fans engine events out to WebSocket subscribers. It implements
// engine.Notifier and never blocks the engine: a subscriber that cannot
// keep up is dropped.
type Hub struct {
	log *logging.Logger
	seq atomic.Int64

	mu   sync.Mutex
	subs map[*subscriber]bool
}

type subscriber struct {
	conn   *websocket.Conn
	send   chan EventFrame
	closed bool
}

// NewHub creates an event hub.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		log:  log.Sub("events"),
		subs: make(map[*subscriber]bool),
	}
}

// Notify broadcasts an engine event to all subscribers.
func (h *Hub) Notify(evt engine.Event) {
	frame := EventFrame{
		Seq:       h.seq.Add(1),
		Timestamp: time.Now(),
		Type:      evt.Type,
		SessionID: evt.SessionID,
		Turn:      evt.Turn,
		Data:      evt.Data,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- frame:
		default:
			h.log.Warn().Msg("dropping slow event subscriber")
			h.closeLocked(sub)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.closeLocked(sub)
	}
}

// ServeConn runs a subscriber connection until the peer disconnects.
// Inbound messages are discarded; the feed is one-way.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	sub := &subscriber{
		conn: conn,
		send: make(chan EventFrame, subscriberBuffer),
	}

	h.mu.Lock()
	h.subs[sub] = true
	h.mu.Unlock()
	h.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("event subscriber connected")

	go h.writeLoop(sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.closeLocked(sub)
	h.mu.Unlock()
}

func (h *Hub) writeLoop(sub *subscriber) {
	for frame := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := sub.conn.WriteJSON(frame); err != nil {
			h.mu.Lock()
			h.closeLocked(sub)
			h.mu.Unlock()
			return
		}
	}
}

// closeLocked removes a subscriber. Caller holds h.mu.
func (h *Hub) closeLocked(sub *subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(h.subs, sub)
	close(sub.send)
	sub.conn.Close()
}
