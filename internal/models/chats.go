package models

import "time"

type Chat struct {
	ChatID     string    `json:"_id" db:"chat_id"`
	IsGroup    bool      `json:"isGroupChat" db:"is_group"`
	ChatName   string    `json:"chatName" db:"chat_name"`
	GroupPic   string    `json:"groupPic" db:"group_pic"`
	GroupAdmin *string   `json:"groupAdmin,omitempty" db:"group_admin"`
	DirectKey  *string   `json:"-" db:"direct_key"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// ChatWithMembers is a chat plus its member summaries and latest-message
// preview, the shape the chat list renders from.
type ChatWithMembers struct {
	Chat
	Members       []UserSummary `json:"users"`
	LatestMessage *Message      `json:"latestMessage,omitempty"`
}

// OtherMember returns the first member that is not userID. Direct chats
// have exactly two members, so for them this is the peer.
func (c *ChatWithMembers) OtherMember(userID string) *UserSummary {
	for i := range c.Members {
		if c.Members[i].UserID != userID {
			return &c.Members[i]
		}
	}
	return nil
}

func (c *ChatWithMembers) HasMember(userID string) bool {
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			return true
		}
	}
	return false
}
