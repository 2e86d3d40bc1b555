package server

import (
	"encoding/json"
	"errors"
	"net/http"

	storage "github.com/Ignsass/chat-app/internal/storages"
	"github.com/Ignsass/chat-app/internal/usecases"
)

type errorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"msg"`
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("can't encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, msg string) {
	s.respondJSON(w, code, errorResponse{Status: false, Message: msg})
}

// respondUsecaseError maps domain sentinels onto HTTP statuses in one
// place; anything unmapped is an internal error and gets logged.
func (s *Server) respondUsecaseError(w http.ResponseWriter, err error) {
	mappings := []struct {
		from error
		code int
	}{
		{usecases.ErrWrongCredentials, http.StatusUnauthorized},
		{usecases.ErrPermissionDenied, http.StatusForbidden},
		{usecases.ErrBusinessLogicViolation, http.StatusBadRequest},
		{storage.ErrUserNotFound, http.StatusNotFound},
		{storage.ErrChatNotFound, http.StatusNotFound},
		{storage.ErrMessageNotFound, http.StatusNotFound},
		{storage.ErrUsernameTaken, http.StatusConflict},
		{storage.ErrEmailTaken, http.StatusConflict},
		{storage.ErrAlreadyMember, http.StatusConflict},
	}

	for _, m := range mappings {
		if errors.Is(err, m.from) {
			s.respondError(w, m.code, err.Error())
			return
		}
	}

	s.log.WithError(err).Error("request failed")
	s.respondError(w, http.StatusInternalServerError, "internal server error")
}
