package boardclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_CreatePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/activists" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var got NewPost
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if got.Interest != "tool library" || got.Password != "pw" {
			t.Errorf("unexpected body %+v", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"success","data":{"id":7,"interest":"tool library","location":"Online","signal_username":"h","created_at":"2026-05-01T12:00:00Z","hasPassword":true}}`))
	}))
	defer srv.Close()

	post, err := NewClient(srv.URL+"/").CreatePost(context.Background(), NewPost{
		Interest:       "tool library",
		SignalUsername: "h",
		Password:       "pw",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.ID != 7 || post.Location != "Online" || !post.HasPassword {
		t.Errorf("unexpected post %+v", post)
	}
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("keyword"); got != `"community garden" OR market` {
			t.Errorf("keyword = %q", got)
		}
		if got := r.URL.Query().Get("location"); got != "" {
			t.Errorf("location = %q, want empty", got)
		}
		w.Write([]byte(`{"message":"success","data":[{"id":2},{"id":1}]}`))
	}))
	defer srv.Close()

	posts, err := NewClient(srv.URL).Search(context.Background(), `"community garden" OR market`, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != 2 {
		t.Errorf("posts = %+v", posts)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/activists/3" || r.Method != http.MethodDelete {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"too many failed attempts, try again later"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).DeletePost(context.Background(), 3, "guess")
	if !IsStatus(err, http.StatusTooManyRequests) {
		t.Fatalf("err = %v, want a 429 APIError", err)
	}
	if IsStatus(err, http.StatusUnauthorized) {
		t.Error("IsStatus matched the wrong status")
	}
}
