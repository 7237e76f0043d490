// Package boardclient is a small client for the board's HTTP API.
package boardclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:3000"

// Client talks to a running board server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the board at baseURL. If baseURL is empty,
// it defaults to http://localhost:3000.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Post is a board post as the API returns it.
type Post struct {
	ID             int64     `json:"id"`
	Interest       string    `json:"interest"`
	Location       string    `json:"location"`
	SignalUsername string    `json:"signal_username"`
	Alias          string    `json:"alias,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	HasPassword    bool      `json:"hasPassword"`
}

// NewPost is the body of a create request. Password is optional; without it
// the post can never be edited or deleted by its author.
type NewPost struct {
	Interest       string `json:"interest"`
	Location       string `json:"location,omitempty"`
	SignalUsername string `json:"signal_username"`
	Alias          string `json:"alias,omitempty"`
	Password       string `json:"password,omitempty"`
}

// APIError is a non-2xx response from the board.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, post NewPost) (*Post, error) {
	var created Post
	if err := c.do(ctx, http.MethodPost, "/api/activists", post, &created); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &created, nil
}

// Search lists recent posts matching keyword and location. Either may be
// empty.
func (c *Client) Search(ctx context.Context, keyword, location string) ([]Post, error) {
	q := url.Values{}
	if keyword != "" {
		q.Set("keyword", keyword)
	}
	if location != "" {
		q.Set("location", location)
	}
	path := "/api/activists"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var posts []Post
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

// DeletePost removes a protected post using its password.
func (c *Client) DeletePost(ctx context.Context, id int64, password string) error {
	body := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodDelete, "/api/activists/"+strconv.FormatInt(id, 10), body, nil); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

// AdminDeletePost removes any post using the admin password.
func (c *Client) AdminDeletePost(ctx context.Context, id int64, adminPassword string) error {
	body := map[string]string{"adminPassword": adminPassword}
	if err := c.do(ctx, http.MethodDelete, "/api/admin/activists/"+strconv.FormatInt(id, 10), body, nil); err != nil {
		return fmt.Errorf("admin delete post %d: %w", id, err)
	}
	return nil
}

// envelope is the wrapper around every board response.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}

	return nil
}
