package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ignsass/chat-app/internal/auth"
	"github.com/Ignsass/chat-app/internal/avatar"
	"github.com/Ignsass/chat-app/internal/models"
	storage "github.com/Ignsass/chat-app/internal/storages"
	"github.com/Ignsass/chat-app/internal/uploads"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrWrongCredentials = errors.New("incorrect username or password")
)

const defaultProfilePic = "default.svg"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=4,max=20"`
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=6,max=30"`

	// Avatar is the optional raw profile picture, uploaded before the
	// account row is persisted.
	Avatar            []byte `json:"-"`
	AvatarContentType string `json:"-"`
}

// AuthResponse is what register and login hand back to the client.
type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type UsersUsecase struct {
	registry storage.Registry
	tokens   *auth.Manager
	uploader uploads.Uploader
	notify   Notifier
	log      logrus.FieldLogger
}

func NewUsersUsecase(r storage.Registry, tokens *auth.Manager, uploader uploads.Uploader, notify Notifier, log logrus.FieldLogger) *UsersUsecase {
	return &UsersUsecase{
		registry: r,
		tokens:   tokens,
		uploader: uploader,
		notify:   notify,
		log:      log,
	}
}

func (u *UsersUsecase) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	profilePic := defaultProfilePic
	if len(req.Avatar) > 0 {
		profilePic, err = u.uploader.Upload(ctx, req.Avatar, req.AvatarContentType, uploads.FolderProfilePics)
		if err != nil {
			return nil, fmt.Errorf("can't upload profile picture: %w", err)
		}
	}

	user := models.User{
		UserID:       uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		ProfilePic:   profilePic,
		AvatarColor:  avatar.Color(req.Username),
		CreatedAt:    time.Now().UTC(),
	}

	err = u.registry.GetUsersStore().CreateUser(ctx, &user)
	if err != nil {
		return nil, err
	}

	return u.authResponse(&user)
}

func (u *UsersUsecase) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	user, err := u.registry.GetUsersStore().GetUserByUsername(ctx, username)

	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrWrongCredentials
	} else if err != nil {
		return nil, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrWrongCredentials
	}

	return u.authResponse(user)
}

func (u *UsersUsecase) authResponse(user *models.User) (*AuthResponse, error) {
	token, err := u.tokens.Generate(user.UserID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:  *user,
		Token: token,
	}, nil
}

func (u *UsersUsecase) GetUser(ctx context.Context, userId string) (*models.User, error) {
	return u.registry.GetUsersStore().GetUser(ctx, userId)
}

// SearchUsers lists users matching keyword, the requester excluded.
func (u *UsersUsecase) SearchUsers(ctx context.Context, keyword string, selfId string) ([]models.UserSummary, error) {
	return u.registry.GetUsersStore().SearchUsers(ctx, keyword, selfId)
}

// Rename changes the username and propagates the patch to every open
// session. The display color stays derived from the original name until
// clients refetch, matching the patch-only contract.
func (u *UsersUsecase) Rename(ctx context.Context, userId string, username string) (*models.User, error) {
	err := u.registry.Atomic(ctx, func(r storage.Registry) error {
		return r.GetUsersStore().UpdateUsername(ctx, userId, username)
	})
	if err != nil {
		return nil, err
	}

	patch := models.UserPatch{UserID: userId, Username: &username}
	u.notify.UserUpdated(patch)
	u.publishUserUpdated(patch)

	return u.GetUser(ctx, userId)
}

func (u *UsersUsecase) UpdateEmail(ctx context.Context, userId string, email string) (*models.User, error) {
	err := u.registry.GetUsersStore().UpdateEmail(ctx, userId, email)
	if err != nil {
		return nil, err
	}
	return u.GetUser(ctx, userId)
}

func (u *UsersUsecase) UpdatePassword(ctx context.Context, userId string, oldPassword, newPassword string) error {
	store := u.registry.GetUsersStore()
	user, err := store.GetUser(ctx, userId)
	if err != nil {
		return err
	}

	if !auth.VerifyPassword(oldPassword, user.PasswordHash) {
		return ErrWrongCredentials
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return store.UpdatePassword(ctx, userId, hash)
}

func (u *UsersUsecase) UpdateProfilePic(ctx context.Context, userId string, pic []byte, contentType string) (*models.User, error) {
	profilePic := defaultProfilePic
	if len(pic) > 0 {
		var err error
		profilePic, err = u.uploader.Upload(ctx, pic, contentType, uploads.FolderProfilePics)
		if err != nil {
			return nil, fmt.Errorf("can't upload profile picture: %w", err)
		}
	}

	err := u.registry.GetUsersStore().UpdateProfilePic(ctx, userId, profilePic)
	if err != nil {
		return nil, err
	}

	patch := models.UserPatch{UserID: userId, ProfilePic: &profilePic}
	u.notify.UserUpdated(patch)
	u.publishUserUpdated(patch)

	return u.GetUser(ctx, userId)
}

// Delete removes the account only. Chats and messages keep their rows; the
// user-deleted broadcast lets connected clients drop direct chats with the
// deleted user, and everyone else catches up on the next fetch.
func (u *UsersUsecase) Delete(ctx context.Context, userId string) error {
	err := u.registry.GetUsersStore().DeleteUser(ctx, userId)
	if err != nil {
		return err
	}

	u.notify.UserDeleted(userId)
	if err := u.registry.GetUpdatesStore().UserDeleted(&models.UserDeleted{
		UpdateMeta: models.UpdateMeta{Timestamp: time.Now().UTC()},
		UserID:     userId,
	}); err != nil {
		u.log.WithError(err).Warning("can't publish user-deleted update")
	}
	return nil
}

// SetPresence persists an online/offline flip and propagates it. Called by
// the websocket layer on setup and disconnect.
func (u *UsersUsecase) SetPresence(ctx context.Context, userId string, online bool) error {
	err := u.registry.GetUsersStore().SetOnline(ctx, userId, online)
	if err != nil {
		return err
	}

	patch := models.UserPatch{UserID: userId, IsOnline: &online}
	u.notify.UserStatusChanged(patch)
	u.publishUserUpdated(patch)
	return nil
}

func (u *UsersUsecase) publishUserUpdated(patch models.UserPatch) {
	err := u.registry.GetUpdatesStore().UserUpdated(&models.UserUpdated{
		UpdateMeta: models.UpdateMeta{Timestamp: time.Now().UTC()},
		Patch:      patch,
	})
	if err != nil {
		u.log.WithError(err).Warning("can't publish user-updated update")
	}
}
