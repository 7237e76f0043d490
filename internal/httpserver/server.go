package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/blackmichael/collabboard/internal/config"
	"github.com/blackmichael/collabboard/internal/domain"
	"github.com/blackmichael/collabboard/internal/metrics"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// Server is the HTTP server for the board API.
type Server struct {
	cfg        *config.Config
	board      *domain.BoardService
	logger     *slog.Logger
	throttle   *clientThrottle
	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a new HTTP server backed by the board service. feed
// serves the live update stream; it may be nil to disable the stream.
func NewServer(cfg *config.Config, board *domain.BoardService, feed http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		board:    board,
		logger:   logger,
		throttle: newClientThrottle(cfg.CreateRate),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/activists", s.handleListPosts)
	mux.Handle("POST /api/activists", s.throttle.wrap(http.HandlerFunc(s.handleCreatePost)))
	mux.HandleFunc("POST /api/activists/verify", s.handleVerifyPost)
	mux.HandleFunc("PUT /api/activists/{id}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /api/activists/{id}", s.handleDeletePost)
	mux.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/change-password", s.handleChangeAdminPassword)
	mux.HandleFunc("DELETE /api/admin/activists/{id}", s.handleAdminDeletePost)
	if feed != nil {
		mux.Handle("GET /api/activists/stream", feed)
	}
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	s.handler = withLogging(logger, withCORS(cfg.AllowedOrigin, mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// SweepThrottle forgets creation throttles for clients idle longer than
// idle and returns how many were removed.
func (s *Server) SweepThrottle(idle time.Duration) int {
	return s.throttle.sweep(idle)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	body := map[string]any{"message": "success"}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps a service error to its HTTP status. Unexpected
// errors are logged and reported without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error()+", try again later")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, domain.ErrConflict.Error()+", try again")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
