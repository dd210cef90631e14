package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/watch"
)

const (
	DefaultStreamBuffer = 64

	writeWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var _ watch.Sink = (*Hub)(nil)

// Hub fans measurement reports out to websocket subscribers. Delivery is
// best-effort: a subscriber whose buffer is full misses the report, so the
// measured goroutine never waits on a slow client.
type Hub struct {
	buffer int
	logger log.Log

	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool

	dropped atomic.Uint64
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan watch.Report
}

func NewHub(buffer int, logger log.Log) *Hub {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Hub{
		buffer:      buffer,
		logger:      logger.With(log.String("component", "stream")),
		subscribers: make(map[string]*subscriber),
	}
}

// Observe implements watch.Sink.
func (h *Hub) Observe(report watch.Report) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.send <- report:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns how many reports were skipped for full subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// ServeHTTP upgrades the request and streams reports as JSON text frames
// until the client disconnects or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade stream connection", log.Error(err))
		return
	}

	sub, ok := h.subscribe(conn)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	subLogger := h.logger.With(log.String("subscriber_id", sub.id))
	subLogger.Debug("Stream subscriber connected", log.String("remote_addr", r.RemoteAddr))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(sub, subLogger)
	}()

	h.readLoop(sub)
	h.unsubscribe(sub)
	<-done
	_ = conn.Close()

	subLogger.Debug("Stream subscriber disconnected")
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		_ = sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = sub.conn.Close()
	}
}

func (h *Hub) subscribe(conn *websocket.Conn) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}

	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan watch.Report, h.buffer),
	}
	h.subscribers[sub.id] = sub
	return sub, true
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub.id]; ok {
		delete(h.subscribers, sub.id)
		close(sub.send)
	}
}

// readLoop discards client frames; it returns once the connection fails.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber, logger log.Log) {
	for report := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(report); err != nil {
			logger.Debug("Stream write failed", log.Error(err))
			// Unblocks readLoop.
			_ = sub.conn.Close()
			return
		}
	}
}
