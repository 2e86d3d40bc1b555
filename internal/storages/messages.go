package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Ignsass/chat-app/internal/models"
	sq "github.com/Masterminds/squirrel"
)

var (
	ErrMessageAlreadyExists = errors.New("message with provided message_id already exists")
	ErrMessageNotFound      = errors.New("message does not exist")
)

const (
	MessagesPrimaryKey           = "messages_pkey"
	MessagesChatIdForeignKey     = "messages_chat_id_fkey"
	ReactionsMessageIdForeignKey = "reactions_message_id_fkey"
)

type MessagesStorage struct {
	db Scope
}

func NewMessagesStorage(db Scope) *MessagesStorage {
	return &MessagesStorage{
		db: db,
	}
}

// messageRow is the flat scan target; sender fields come from a left join
// so messages from deleted users still load.
type messageRow struct {
	MessageID         string       `db:"message_id"`
	ChatID            string       `db:"chat_id"`
	SenderID          string       `db:"sender"`
	SenderUsername    string       `db:"sender_username"`
	SenderProfilePic  string       `db:"sender_profile_pic"`
	SenderAvatarColor string       `db:"sender_avatar_color"`
	SenderIsOnline    bool         `db:"sender_is_online"`
	Content           string       `db:"content"`
	Attachment        string       `db:"attachment"`
	SentAt            sql.NullTime `db:"sent_at"`
}

func (r *messageRow) toModel() models.Message {
	msg := models.Message{
		MessageID: r.MessageID,
		ChatID:    r.ChatID,
		Sender: models.UserSummary{
			UserID:      r.SenderID,
			Username:    r.SenderUsername,
			ProfilePic:  r.SenderProfilePic,
			AvatarColor: r.SenderAvatarColor,
			IsOnline:    r.SenderIsOnline,
		},
		Content:    r.Content,
		Attachment: r.Attachment,
		Reactions:  []models.Reaction{},
	}
	if r.SentAt.Valid {
		msg.SentAt = r.SentAt.Time
	}
	return msg
}

func messageSelect() sq.SelectBuilder {
	return sq.Select(
		"m.message_id", "m.chat_id", "m.sender", "m.content", "m.attachment", "m.sent_at",
		"coalesce(u.username, '') AS sender_username",
		"coalesce(u.profile_pic, '') AS sender_profile_pic",
		"coalesce(u.avatar_color, '') AS sender_avatar_color",
		"coalesce(u.is_online, false) AS sender_is_online").
		From("messages m").
		LeftJoin("users u ON u.user_id = m.sender").
		PlaceholderFormat(sq.Dollar)
}

func (s *MessagesStorage) PutMessage(ctx context.Context, message *models.Message) error {
	query, args, err := sq.Insert("messages").
		Columns("message_id", "chat_id", "sender", "content", "attachment", "sent_at").
		Values(message.MessageID, message.ChatID, message.Sender.UserID, message.Content, message.Attachment, message.SentAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch constraintName(err) {
	case MessagesChatIdForeignKey:
		return ErrChatNotFound
	case MessagesPrimaryKey:
		return ErrMessageAlreadyExists
	default:
		return err
	}
}

func (s *MessagesStorage) GetMessage(ctx context.Context, messageId string) (*models.Message, error) {
	query, args, err := messageSelect().
		Where(sq.Eq{"m.message_id": messageId}).
		ToSql()

	if err != nil {
		return nil, err
	}

	row := messageRow{}
	err = s.db.GetContext(ctx, &row, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, err
	}

	msg := row.toModel()
	msg.Reactions, err = s.GetReactions(ctx, msg.MessageID)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetChatMessages returns the chat history in sending order, reactions
// included.
func (s *MessagesStorage) GetChatMessages(ctx context.Context, chatId string) ([]models.Message, error) {
	query, args, err := messageSelect().
		Where(sq.Eq{"m.chat_id": chatId}).
		OrderBy("m.sent_at", "m.message_id").
		ToSql()

	if err != nil {
		return nil, err
	}

	rows := make([]messageRow, 0)
	err = s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(rows))
	for i := range rows {
		msg := rows[i].toModel()
		msg.Reactions, err = s.GetReactions(ctx, msg.MessageID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SetReaction stores the user's reaction on a message. The (message, user)
// primary key turns a repeated reaction into an emoji replacement.
func (s *MessagesStorage) SetReaction(ctx context.Context, messageId string, userId string, emoji string) error {
	query, args, err := sq.Insert("reactions").
		Columns("message_id", "user_id", "emoji").
		Values(messageId, userId, emoji).
		Suffix("ON CONFLICT (message_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	if constraintName(err) == ReactionsMessageIdForeignKey {
		return ErrMessageNotFound
	}
	return err
}

func (s *MessagesStorage) GetReactions(ctx context.Context, messageId string) ([]models.Reaction, error) {
	query, args, err := sq.Select("user_id", "emoji").
		From("reactions").
		Where(sq.Eq{"message_id": messageId}).
		OrderBy("user_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	reactions := make([]models.Reaction, 0)
	err = s.db.SelectContext(ctx, &reactions, query, args...)
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (s *MessagesStorage) DeleteMessage(ctx context.Context, messageId string) error {
	query, args, err := sq.Delete("messages").
		Where(sq.Eq{"message_id": messageId}).
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
		return ErrMessageNotFound
	}

	return nil
}
