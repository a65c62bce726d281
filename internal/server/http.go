package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/internal/core/snapshot"
	"github.com/zeusync/savestate/pkg/encoding"
)

type errorResponse struct {
	Error string `json:"error"`
	Fatal bool   `json:"fatal,omitempty"`
}

type loadResponse struct {
	Op      string         `json:"op"`
	Applied map[string]int `json:"applied"`
	Skipped int            `json:"skipped"`
	Spawned int            `json:"spawned"`
	Ignored []string       `json:"ignored,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
}

func newLoadResponse(res *snapshot.LoadResult) *loadResponse {
	out := &loadResponse{
		Op:      res.Op,
		Applied: res.Applied,
		Skipped: res.Skipped,
		Spawned: res.Spawned,
		Ignored: res.Ignored,
	}
	for _, err := range res.Reported {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

type resetResponse struct {
	Removed int `json:"removed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Fatal: snapshot.IsFatal(err)})
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case snapshot.IsFatal(err):
		return http.StatusConflict
	case errors.Is(err, snapshot.ErrCodec),
		errors.Is(err, snapshot.ErrNoInput),
		errors.Is(err, snapshot.ErrAmbiguousInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": s.engine.Profile().Name(),
		"codec":   s.engine.Profile().Codec().Name(),
		"types":   s.engine.TypeNames(),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	data, err := s.engine.SaveBytes(r.Context())
	if err != nil {
		s.logger.Error("save failed", log.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	etag := `"` + encoding.Digest(data) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", encoding.ContentType(s.engine.Profile().Codec()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.engine.LoadBytes(r.Context(), data)
	if err != nil {
		s.logger.Warn("load failed", log.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newLoadResponse(res))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	removed, err := s.engine.RemoveRegistered(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Removed: removed})
}
