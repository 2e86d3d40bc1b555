package server

import (
	"net/http"

	"github.com/Ignsass/chat-app/internal/uploads"
	"github.com/Ignsass/chat-app/internal/usecases"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	req := usecases.SendMessageRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.messages.SendMessage(r.Context(), requestUserID(r), req)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, msg)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if chatID == "" {
		s.respondError(w, http.StatusBadRequest, "chat id required")
		return
	}

	messages, err := s.messages.GetMessages(r.Context(), requestUserID(r), chatID)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messages)
}

type addReactionRequest struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
	Emoji     string `json:"emoji" validate:"required,max=16"`
}

func (s *Server) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	req := addReactionRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.messages.AddReaction(r.Context(), requestUserID(r), req.MessageID, req.Emoji)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, msg)
}

// handleUpload stores a message attachment and returns its public URL.
// The message referencing it is persisted by a following addmsg call.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := readFormFile(r, "attachment")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if len(data) == 0 {
		s.respondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}

	url, err := s.uploader.Upload(r.Context(), data, contentType, uploads.FolderAttachments)
	if err != nil {
		s.log.WithError(err).Error("attachment upload failed")
		s.respondError(w, http.StatusInternalServerError, "failed to upload file")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
