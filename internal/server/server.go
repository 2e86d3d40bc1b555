// Package server is the HTTP surface: REST routes mirroring the client's
// API plus the websocket upgrade endpoint.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/Ignsass/chat-app/internal/auth"
	"github.com/Ignsass/chat-app/internal/realtime"
	"github.com/Ignsass/chat-app/internal/uploads"
	"github.com/Ignsass/chat-app/internal/usecases"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type Server struct {
	users    *usecases.UsersUsecase
	chats    *usecases.ChatsUsecase
	messages *usecases.MessagesUsecase
	uploader uploads.Uploader
	verifier *auth.Manager
	ws       *realtime.Handler
	validate *validator.Validate
	log      logrus.FieldLogger
}

func New(
	users *usecases.UsersUsecase,
	chats *usecases.ChatsUsecase,
	messages *usecases.MessagesUsecase,
	uploader uploads.Uploader,
	verifier *auth.Manager,
	ws *realtime.Handler,
	validate *validator.Validate,
	log logrus.FieldLogger,
) *Server {
	return &Server{
		users:    users,
		chats:    chats,
		messages: messages,
		uploader: uploader,
		verifier: verifier,
		ws:       ws,
		validate: validate,
		log:      log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.protect)
			r.Get("/allUsers", s.handleSearchUsers)
			r.Get("/getUser", s.handleGetUser)
			r.Put("/renameUser", s.handleRenameUser)
			r.Put("/emailUpdate", s.handleEmailUpdate)
			r.Put("/passwordUpdate", s.handlePasswordUpdate)
			r.Put("/profilePicUpdate", s.handleProfilePicUpdate)
			r.Put("/deleteUser", s.handleDeleteUser)
		})
	})

	r.Route("/api/chats", func(r chi.Router) {
		r.Use(s.protect)
		r.Post("/accessChat", s.handleAccessChat)
		r.Get("/fetchChats", s.handleFetchChats)
		r.Post("/group", s.handleCreateGroup)
		r.Put("/rename", s.handleRenameGroup)
		r.Put("/grouppic", s.handleGroupPicUpdate)
		r.Put("/groupadd", s.handleAddToGroup)
		r.Put("/groupremove", s.handleRemoveFromGroup)
		r.Put("/deleteChat", s.handleDeleteChat)
	})

	r.Route("/api/messages", func(r chi.Router) {
		r.Use(s.protect)
		r.Post("/addmsg", s.handleSendMessage)
		r.Get("/getmsg/{chatId}", s.handleGetMessages)
		r.Put("/addReaction", s.handleAddReaction)
	})

	r.With(s.protect).Post("/api/upload", s.handleUpload)

	r.Get("/ws", s.ws.ServeWS)

	return r
}

func (s *Server) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return s.validate.Struct(dst)
}
