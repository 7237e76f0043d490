package livefeed

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/blackmichael/collabboard/internal/domain"
	"github.com/blackmichael/collabboard/internal/metrics"
	"github.com/blackmichael/collabboard/internal/search"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	defaultBufferSize = 16
)

// Hub fans board events out to websocket subscribers. It implements
// domain.EventPublisher. Each subscriber may give a keyword query; created
// and updated posts are only sent when their interest matches it, deletions
// are always sent.
//
// Publish never blocks. A subscriber whose buffer is full misses the event.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	bufferSize int

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool
}

type subscriber struct {
	query *search.Query
	send  chan message
	done  chan struct{}
	once  sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewHub creates a Hub. allowedOrigin is matched against the Origin header
// of upgrade requests; "*" accepts any origin.
func NewHub(allowedOrigin string, logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(allowedOrigin),
			HandshakeTimeout: 10 * time.Second,
		},
		bufferSize:  defaultBufferSize,
		subscribers: make(map[*subscriber]struct{}),
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// Publish sends event to every interested subscriber.
func (h *Hub) Publish(event domain.Event) {
	msg := newMessage(event)

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		if event.Type != domain.EventDeleted && !sub.query.Match(event.Post.Interest) {
			continue
		}
		select {
		case sub.send <- msg:
		default:
			metrics.RecordFeedDropped()
			h.logger.Warn("live feed subscriber too slow, dropping event",
				"event", event.Type,
				"post_id", event.Post.ID,
			)
		}
	}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber and refuses new ones. http.Server
// shutdown does not wait for hijacked connections, so call this alongside it.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subscribers {
		sub.stop()
	}
}

// ServeHTTP upgrades the request to a websocket and streams events until
// the client goes away or the hub is closed. The optional keyword query
// parameter uses the same syntax as listing searches.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := search.Parse(r.URL.Query().Get("keyword"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{
		query: query,
		send:  make(chan message, h.bufferSize),
		done:  make(chan struct{}),
	}
	if !h.add(sub) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		return
	}
	defer h.remove(sub)

	h.logger.Info("live feed subscriber connected", "keyword", query.String())

	go readLoop(conn, sub)
	h.writeLoop(conn, sub)
}

func (h *Hub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subscribers[sub] = struct{}{}
	metrics.FeedSubscriberConnected()
	return true
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		metrics.FeedSubscriberDisconnected()
	}
}

// readLoop discards client messages and keeps the read deadline fresh on
// pongs. It stops the subscriber once the connection fails.
func readLoop(conn *websocket.Conn, sub *subscriber) {
	defer sub.stop()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Info("live feed subscriber write failed", "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sub.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
