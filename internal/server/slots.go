package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/internal/core/storage"
	"github.com/zeusync/savestate/pkg/encoding"
)

type slotsResponse struct {
	Slots []string           `json:"slots"`
	Stats storage.Statistics `json:"stats"`
}

type slotResponse struct {
	Slot   string `json:"slot"`
	Digest string `json:"digest"`
}

func slotStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return statusFor(err)
	}
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{Slots: keys, Stats: s.store.Statistics()})
}

func (s *Server) handleSaveSlot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := storage.ValidateKey(name); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := s.engine.SaveBytes(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err = storage.Put(r.Context(), s.store, name, data); err != nil {
		s.logger.Error("slot write failed", log.String("slot", name), log.Error(err))
		writeError(w, slotStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, slotResponse{Slot: name, Digest: encoding.Digest(data)})
}

func (s *Server) handleLoadSlot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := s.store.Read(r.Context(), name)
	if err != nil {
		writeError(w, slotStatus(err), err)
		return
	}
	res, err := s.engine.LoadBytes(r.Context(), data)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newLoadResponse(res))
}

func (s *Server) handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, slotStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
