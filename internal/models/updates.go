package models

import "time"

// UpdateMeta is attached to every feed update. Audience holds the user ids
// the update concerns; consumers without a member in it may skip the record.
type UpdateMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Audience  []string  `json:"audience"`
}

type MessageSent struct {
	UpdateMeta
	Message Message `json:"message"`
}

// ReactionSet mirrors the post-mutation reaction state of one message.
type ReactionSet struct {
	UpdateMeta
	MessageID string     `json:"messageId"`
	ChatID    string     `json:"chatId"`
	Reactions []Reaction `json:"reactions"`
}

type ChatCreated struct {
	UpdateMeta
	ChatID   string   `json:"chatId"`
	IsGroup  bool     `json:"isGroupChat"`
	Members  []string `json:"members"`
	ChatName string   `json:"chatName"`
}

type ChatDeleted struct {
	UpdateMeta
	ChatID string `json:"chatId"`
}

type MemberAdded struct {
	UpdateMeta
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type MemberRemoved struct {
	UpdateMeta
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type UserUpdated struct {
	UpdateMeta
	Patch UserPatch `json:"patch"`
}

type UserDeleted struct {
	UpdateMeta
	UserID string `json:"userId"`
}
