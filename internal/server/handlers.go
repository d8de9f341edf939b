package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

type askRequest struct {
	Key      string `json:"key,omitempty"`
	Question string `json:"question"`
}

type indexRequest struct {
	Key      string   `json:"key,omitempty"`
	Path     string   `json:"path,omitempty"`
	Passages []string `json:"passages,omitempty"`
}

type indexResponse struct {
	*pipeline.BuildResult
	PersistError string `json:"persist_error,omitempty"`
}

func (s *Server) keyOrDefault(key string) string {
	if key == "" {
		return s.defaultKey
	}
	return key
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := s.keyOrDefault(req.Key)
	s.logger.Debug("ask request", zap.String("key", key), zap.Int("question_len", len(req.Question)))
	ans, err := s.engine.Ask(r.Context(), key, req.Question)
	if err != nil {
		s.logger.Error("ask failed", zap.String("key", key), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.Path == "") == (req.Passages == nil) {
		s.respondError(w, http.StatusBadRequest, "exactly one of path or passages is required")
		return
	}
	key := s.keyOrDefault(req.Key)
	s.logger.Debug("index request", zap.String("key", key), zap.String("path", req.Path), zap.Int("passages", len(req.Passages)))

	var (
		res *pipeline.BuildResult
		err error
	)
	if req.Path != "" {
		res, err = s.engine.BuildFromFile(r.Context(), key, req.Path)
	} else {
		res, err = s.engine.Build(r.Context(), key, req.Passages)
	}
	if err != nil {
		s.logger.Error("indexing failed", zap.String("key", key), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	out := indexResponse{BuildResult: res}
	if res.PersistErr != nil {
		out.PersistError = res.PersistErr.Error()
	}
	s.respondJSON(w, http.StatusCreated, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	key := s.keyOrDefault(r.URL.Query().Get("key"))
	st, err := s.engine.Status(r.Context(), key)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidKey), errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrIndexCorrupt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrIndexLoadFailure):
		if errors.Is(err, fs.ErrNotExist) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusBadRequest
	case errors.Is(err, vector.ErrEmptyIndex):
		return http.StatusConflict
	case errors.Is(err, embedding.ErrEmbeddingFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
