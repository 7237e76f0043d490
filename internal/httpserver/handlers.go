package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blackmichael/collabboard/internal/domain"
	"github.com/blackmichael/collabboard/internal/metrics"
)

// postRequest is the body of create and update requests.
type postRequest struct {
	Interest       string `json:"interest"`
	Location       string `json:"location"`
	SignalUsername string `json:"signal_username"`
	Alias          string `json:"alias"`
	Password       string `json:"password"`
}

func (p postRequest) fields() domain.PostFields {
	return domain.PostFields{
		Interest:       p.Interest,
		Location:       p.Location,
		SignalUsername: p.SignalUsername,
		Alias:          p.Alias,
	}
}

// postResponse is a post as the API shows it. The hash is never included.
type postResponse struct {
	ID             int64     `json:"id"`
	Interest       string    `json:"interest"`
	Location       string    `json:"location"`
	SignalUsername string    `json:"signal_username"`
	Alias          string    `json:"alias,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	HasPassword    bool      `json:"hasPassword"`
}

func toPostResponse(p *domain.Post, hasPassword bool) postResponse {
	return postResponse{
		ID:             p.ID,
		Interest:       p.Interest,
		Location:       p.Location,
		SignalUsername: p.SignalUsername,
		Alias:          p.Alias,
		CreatedAt:      p.CreatedAt,
		HasPassword:    hasPassword,
	}
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	location := r.URL.Query().Get("location")

	listings, err := s.board.SearchPosts(r.Context(), keyword, location)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := make([]postResponse, len(listings))
	for i := range listings {
		resp[i] = toPostResponse(&listings[i].Post, listings[i].HasPassword)
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !s.decode(w, r, &req) {
		return
	}

	post, err := s.board.CreatePost(r.Context(), domain.NewPost{
		PostFields: req.fields(),
		Password:   req.Password,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	protected := strings.TrimSpace(req.Password) != ""
	metrics.RecordPostCreated(protected)
	writeSuccess(w, http.StatusCreated, toPostResponse(post, protected))
}

func (s *Server) handleVerifyPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       int64  `json:"id"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	post, err := s.board.VerifyPost(r.Context(), req.ID, req.Password)
	recordCheck("verify", err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toPostResponse(post, true))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req postRequest
	if !s.decode(w, r, &req) {
		return
	}

	post, err := s.board.UpdatePost(r.Context(), id, req.fields(), req.Password)
	recordCheck("update", err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toPostResponse(post, true))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	err := s.board.DeletePost(r.Context(), id, req.Password)
	recordCheck("delete", err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	err := s.board.AdminLogin(r.Context(), req.Password)
	recordCheck("admin_login", err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleChangeAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	err := s.board.ChangeAdminPassword(r.Context(), req.CurrentPassword, req.NewPassword)
	recordCheck("admin_change_password", err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleAdminDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		AdminPassword string `json:"adminPassword"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	err := s.board.AdminDeletePost(r.Context(), id, req.AdminPassword)
	recordCheck("admin_delete", err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"id": id})
}

// decode reads a JSON body into v, replying 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "request_id", requestID(r.Context()), "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// recordCheck counts password gate outcomes. Validation and lookup errors
// never reach a comparison and are not counted.
func recordCheck(action string, err error) {
	switch {
	case err == nil:
		metrics.RecordPasswordCheck(action, metrics.OutcomeOK)
	case errors.Is(err, domain.ErrUnauthorized):
		metrics.RecordPasswordCheck(action, metrics.OutcomeUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		metrics.RecordPasswordCheck(action, metrics.OutcomeForbidden)
	case errors.Is(err, domain.ErrRateLimited):
		metrics.RecordPasswordCheck(action, metrics.OutcomeRateLimited)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
	default:
		metrics.RecordPasswordCheck(action, metrics.OutcomeError)
	}
}
