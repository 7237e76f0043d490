package livefeed

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blackmichael/collabboard/internal/domain"
	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub("*", slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	want := hub.Len() + 1
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The handler registers after the handshake completes.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() < want {
		if time.Now().After(deadline) {
			t.Fatal("subscriber was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func post(id int64, interest string) domain.Post {
	return domain.Post{
		ID: id,
		PostFields: domain.PostFields{
			Interest:       interest,
			Location:       "Online",
			SignalUsername: "handle",
		},
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHub_FiltersByKeyword(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, hub, srv, `/?keyword=%22community+garden%22+OR+market`)

	hub.Publish(domain.Event{Type: domain.EventCreated, Post: post(1, "bicycle repair")})
	hub.Publish(domain.Event{Type: domain.EventCreated, Post: post(2, "build a Community Garden")})
	hub.Publish(domain.Event{Type: domain.EventDeleted, Post: domain.Post{ID: 1}})

	msg := readMessage(t, conn)
	if msg.Type != "created" || msg.Post.ID != 2 || msg.Post.Interest != "build a Community Garden" {
		t.Errorf("first message = %+v, want created post 2", msg)
	}
	if msg.Post.CreatedAt == nil || !msg.Post.CreatedAt.Equal(post(2, "").CreatedAt) {
		t.Errorf("created_at = %v", msg.Post.CreatedAt)
	}

	msg = readMessage(t, conn)
	if msg.Type != "deleted" || msg.Post.ID != 1 || msg.Post.Interest != "" {
		t.Errorf("second message = %+v, want deletion of post 1", msg)
	}
}

func TestHub_NoKeywordReceivesEverything(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, hub, srv, "/")

	hub.Publish(domain.Event{Type: domain.EventCreated, Post: post(1, "bicycle repair")})
	hub.Publish(domain.Event{Type: domain.EventUpdated, Post: post(1, "bicycle library")})

	if msg := readMessage(t, conn); msg.Type != "created" {
		t.Errorf("type = %q, want created", msg.Type)
	}
	if msg := readMessage(t, conn); msg.Type != "updated" || msg.Post.Interest != "bicycle library" {
		t.Errorf("message = %+v, want update", msg)
	}
}

func TestHub_DisconnectRemovesSubscriber(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, hub, srv, "/")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber still registered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Publishing with nobody listening must not block.
	hub.Publish(domain.Event{Type: domain.EventDeleted, Post: domain.Post{ID: 3}})
}

func TestHub_CloseDisconnects(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, hub, srv, "/")

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("err = %v, want normal closure", err)
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub, srv := newTestHub(t)
	dial(t, hub, srv, "/")

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize*8; i++ {
			hub.Publish(domain.Event{Type: domain.EventDeleted, Post: domain.Post{ID: int64(i)}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a subscriber that never reads")
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		allowed, origin string
		want            bool
	}{
		{"*", "https://evil.example", true},
		{"https://board.example", "https://board.example", true},
		{"https://board.example", "https://evil.example", false},
		{"https://board.example", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := originChecker(tt.allowed)(r); got != tt.want {
			t.Errorf("originChecker(%q)(%q) = %v, want %v", tt.allowed, tt.origin, got, tt.want)
		}
	}
}
