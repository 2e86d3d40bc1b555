package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Ignsass/chat-app/internal/models"
	sq "github.com/Masterminds/squirrel"
)

var (
	ErrUsernameTaken = errors.New("the username is already used")
	ErrEmailTaken    = errors.New("the email is already used")
	ErrUserNotFound  = errors.New("user with provided user_id does not exist")
)

const (
	UsersUsernameKey = "users_username_key"
	UsersEmailKey    = "users_email_key"
)

type UsersStorage struct {
	db Scope
}

func NewUsersStorage(db Scope) *UsersStorage {
	return &UsersStorage{
		db: db,
	}
}

func (s *UsersStorage) CreateUser(ctx context.Context, user *models.User) error {
	query, args, err := sq.Insert("users").
		Columns("user_id", "username", "email", "password_hash", "profile_pic", "avatar_color", "is_admin", "is_online", "created_at").
		Values(user.UserID, user.Username, user.Email, user.PasswordHash, user.ProfilePic, user.AvatarColor, user.IsAdmin, user.IsOnline, user.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch constraintName(err) {
	case UsersUsernameKey:
		return ErrUsernameTaken
	case UsersEmailKey:
		return ErrEmailTaken
	default:
		return err
	}
}

func (s *UsersStorage) GetUser(ctx context.Context, userId string) (*models.User, error) {
	query, args, err := sq.Select("*").
		From("users").
		Where(sq.Eq{"user_id": userId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	user := models.User{}
	err = s.db.GetContext(ctx, &user, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UsersStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query, args, err := sq.Select("*").
		From("users").
		Where(sq.Eq{"username": username}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	user := models.User{}
	err = s.db.GetContext(ctx, &user, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers returns summaries of users whose username contains keyword,
// excluding the requesting user. An empty keyword matches everyone else.
func (s *UsersStorage) SearchUsers(ctx context.Context, keyword string, excludeUserId string) ([]models.UserSummary, error) {
	builder := sq.Select("user_id", "username", "profile_pic", "avatar_color", "is_online").
		From("users").
		Where(sq.NotEq{"user_id": excludeUserId}).
		OrderBy("username").
		PlaceholderFormat(sq.Dollar)

	if keyword != "" {
		builder = builder.Where(sq.ILike{"username": "%" + keyword + "%"})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	users := make([]models.UserSummary, 0)
	err = s.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UsersStorage) updateUser(ctx context.Context, userId string, set map[string]interface{}) error {
	query, args, err := sq.Update("users").
		SetMap(set).
		Where(sq.Eq{"user_id": userId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)

	switch constraintName(err) {
	case UsersUsernameKey:
		return ErrUsernameTaken
	case UsersEmailKey:
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}

	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UsersStorage) UpdateUsername(ctx context.Context, userId string, username string) error {
	return s.updateUser(ctx, userId, map[string]interface{}{"username": username})
}

func (s *UsersStorage) UpdateEmail(ctx context.Context, userId string, email string) error {
	return s.updateUser(ctx, userId, map[string]interface{}{"email": email})
}

func (s *UsersStorage) UpdatePassword(ctx context.Context, userId string, passwordHash string) error {
	return s.updateUser(ctx, userId, map[string]interface{}{"password_hash": passwordHash})
}

func (s *UsersStorage) UpdateProfilePic(ctx context.Context, userId string, profilePic string) error {
	return s.updateUser(ctx, userId, map[string]interface{}{"profile_pic": profilePic})
}

func (s *UsersStorage) SetOnline(ctx context.Context, userId string, online bool) error {
	return s.updateUser(ctx, userId, map[string]interface{}{"is_online": online})
}

// DeleteUser removes only the account row. Chats and messages referencing
// the user stay behind; connected clients reconcile them away on the
// user-deleted event.
func (s *UsersStorage) DeleteUser(ctx context.Context, userId string) error {
	query, args, err := sq.Delete("users").
		Where(sq.Eq{"user_id": userId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
