package models

import "time"

// User is the persisted account record. PasswordHash never leaves the
// storage layer; responses carry UserSummary instead.
type User struct {
	UserID       string    `json:"_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	ProfilePic   string    `json:"profilePic" db:"profile_pic"`
	AvatarColor  string    `json:"avatarColor" db:"avatar_color"`
	IsAdmin      bool      `json:"isAdmin" db:"is_admin"`
	IsOnline     bool      `json:"isOnline" db:"is_online"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// UserSummary is the member-facing projection embedded in chats and
// messages.
type UserSummary struct {
	UserID      string `json:"_id" db:"user_id"`
	Username    string `json:"username" db:"username"`
	ProfilePic  string `json:"profilePic" db:"profile_pic"`
	AvatarColor string `json:"avatarColor" db:"avatar_color"`
	IsOnline    bool   `json:"isOnline" db:"is_online"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		UserID:      u.UserID,
		Username:    u.Username,
		ProfilePic:  u.ProfilePic,
		AvatarColor: u.AvatarColor,
		IsOnline:    u.IsOnline,
	}
}

// UserPatch carries only the fields a profile mutation changed. Nil fields
// must be left untouched by reconcilers.
type UserPatch struct {
	UserID     string  `json:"_id"`
	Username   *string `json:"username,omitempty"`
	ProfilePic *string `json:"profilePic,omitempty"`
	IsOnline   *bool   `json:"isOnline,omitempty"`
}
