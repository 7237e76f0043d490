package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer is a bytes.Buffer safe to write from the sweep goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSweep_LogsRemovalsWithHeldState(t *testing.T) {
	var out lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		calls int
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweep(ctx, logger, time.Millisecond, func() sweepStats {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				// Nothing removed, nothing logged.
				return sweepStats{TrackedPosts: 9}
			}
			return sweepStats{Posts: 2, Admin: 1, TrackedPosts: 3, AdminTracked: true, FeedListeners: 4}
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "swept rate limit state") {
		if time.Now().After(deadline) {
			t.Fatal("sweep never logged")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	line, _, _ := strings.Cut(out.String(), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	if entry["posts"] != 2.0 || entry["admin"] != 1.0 || entry["clients"] != 0.0 {
		t.Errorf("removed counts = %v", entry)
	}
	if entry["tracked_posts"] != 3.0 || entry["admin_failures_tracked"] != true || entry["feed_subscribers"] != 4.0 {
		t.Errorf("held state = %v", entry)
	}
}
