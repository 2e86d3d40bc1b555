package models

import "time"

// Reaction is one user's emoji on a message. The storage layer keeps at
// most one row per (message, user); a re-reaction replaces the emoji.
type Reaction struct {
	UserID string `json:"user" db:"user_id"`
	Emoji  string `json:"emoji" db:"emoji"`
}

type Message struct {
	MessageID  string      `json:"_id" db:"message_id"`
	ChatID     string      `json:"chatId" db:"chat_id"`
	Sender     UserSummary `json:"sender"`
	Content    string      `json:"content" db:"content"`
	Attachment string      `json:"attachment" db:"attachment"`
	Reactions  []Reaction  `json:"reactions"`
	SentAt     time.Time   `json:"createdAt" db:"sent_at"`
}

// ReactionBy returns the reaction left by userID, or nil.
func (m *Message) ReactionBy(userID string) *Reaction {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == userID {
			return &m.Reactions[i]
		}
	}
	return nil
}
