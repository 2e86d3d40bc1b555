package server

import (
	"io"
	"net/http"

	"github.com/Ignsass/chat-app/internal/usecases"
)

const maxUploadSize = 10 << 20 // 10MB

// readFormFile pulls an optional file field out of a multipart request.
// A missing file is not an error.
func readFormFile(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

// handleRegister accepts a multipart form with username, email, password
// and an optional profilePic file.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	pic, contentType, err := readFormFile(r, "profilePic")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := usecases.RegisterRequest{
		Username:          r.FormValue("username"),
		Email:             r.FormValue("email"),
		Password:          r.FormValue("password"),
		Avatar:            pic,
		AvatarContentType: contentType,
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.users.Register(r.Context(), req)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req := loginRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.SearchUsers(r.Context(), r.URL.Query().Get("search"), requestUserID(r))
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUser(r.Context(), requestUserID(r))
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

type renameUserRequest struct {
	NewUsername string `json:"newUsername" validate:"required,min=4,max=20"`
}

func (s *Server) handleRenameUser(w http.ResponseWriter, r *http.Request) {
	req := renameUserRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.Rename(r.Context(), requestUserID(r), req.NewUsername)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

type emailUpdateRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email,max=50"`
}

func (s *Server) handleEmailUpdate(w http.ResponseWriter, r *http.Request) {
	req := emailUpdateRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.UpdateEmail(r.Context(), requestUserID(r), req.NewEmail)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

type passwordUpdateRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=30"`
}

func (s *Server) handlePasswordUpdate(w http.ResponseWriter, r *http.Request) {
	req := passwordUpdateRequest{}
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.users.UpdatePassword(r.Context(), requestUserID(r), req.OldPassword, req.NewPassword)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (s *Server) handleProfilePicUpdate(w http.ResponseWriter, r *http.Request) {
	pic, contentType, err := readFormFile(r, "profilePic")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	user, err := s.users.UpdateProfilePic(r.Context(), requestUserID(r), pic, contentType)
	if err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), requestUserID(r)); err != nil {
		s.respondUsecaseError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"status": true})
}
