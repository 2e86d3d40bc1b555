package server

import (
	"net/http"
)

type accessChatRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

func (s *Server) handleAccessChat(w http.ResponseWriter, r *http.Request) {
	req := accessChatRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := s.chats.AccessDirectChat(r.Context(), requestUserID(r), req.UserID)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chat)
}

func (s *Server) handleFetchChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.FetchChats(r.Context(), requestUserID(r))
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chats)
}

type createGroupRequest struct {
	Name  string   `json:"name" validate:"required,min=1,max=50"`
	Users []string `json:"users" validate:"required,min=1,dive,uuid"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	req := createGroupRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := s.chats.CreateGroupChat(r.Context(), requestUserID(r), req.Name, req.Users)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chat)
}

type renameGroupRequest struct {
	ChatID   string `json:"chatId" validate:"required,uuid"`
	ChatName string `json:"chatName" validate:"required,min=1,max=50"`
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	req := renameGroupRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := s.chats.RenameGroup(r.Context(), requestUserID(r), req.ChatID, req.ChatName)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chat)
}

// handleGroupPicUpdate accepts a multipart form with chatId and an
// optional groupPic file.
func (s *Server) handleGroupPicUpdate(w http.ResponseWriter, r *http.Request) {
	pic, contentType, err := readFormFile(r, "groupPic")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	chat, err := s.chats.UpdateGroupPic(r.Context(), requestUserID(r), r.FormValue("chatId"), pic, contentType)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chat)
}

type memberRequest struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
	UserID string `json:"userId" validate:"required,uuid"`
}

func (s *Server) handleAddToGroup(w http.ResponseWriter, r *http.Request) {
	req := memberRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := s.chats.AddToGroup(r.Context(), requestUserID(r), req.ChatID, req.UserID)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chat)
}

func (s *Server) handleRemoveFromGroup(w http.ResponseWriter, r *http.Request) {
	req := memberRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, err := s.chats.RemoveFromGroup(r.Context(), requestUserID(r), req.ChatID, req.UserID)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chat)
}

type deleteChatRequest struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	req := deleteChatRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.chats.DeleteChat(r.Context(), requestUserID(r), req.ChatID); err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"status": true})
}
