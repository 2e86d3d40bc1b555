package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Ignsass/chat-app/internal/models"
	sq "github.com/Masterminds/squirrel"
)

var (
	ErrChatAlreadyExists = errors.New("chat with provided chat_id already exists")
	ErrChatNotFound      = errors.New("chat with provided chat_id does not exist")
	ErrDirectChatExists  = errors.New("direct chat for this pair already exists")
	ErrEmptyMembers      = errors.New("members array can't be empty")
	ErrAlreadyMember     = errors.New("user is already a chat member")
)

const (
	ChatsPrimaryKey             = "chats_pkey"
	ChatsDirectKeyKey           = "chats_direct_key_key"
	ChatMembersPrimaryKey       = "chat_members_pkey"
	ChatMembersChatIdForeignKey = "chat_members_chat_id_fkey"
)

// DirectChatKey builds the unique key a direct chat stores for its member
// pair. The pair is sorted so both orderings produce the same key.
func DirectChatKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

type ChatsStorage struct {
	db Scope
}

func NewChatsStorage(db Scope) *ChatsStorage {
	return &ChatsStorage{
		db: db,
	}
}

func (s *ChatsStorage) CreateChat(ctx context.Context, chat *models.Chat) error {
	query, args, err := sq.Insert("chats").
		Columns("chat_id", "is_group", "chat_name", "group_pic", "group_admin", "direct_key", "created_at", "updated_at").
		Values(chat.ChatID, chat.IsGroup, chat.ChatName, chat.GroupPic, chat.GroupAdmin, chat.DirectKey, chat.CreatedAt, chat.UpdatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch constraintName(err) {
	case ChatsPrimaryKey:
		return ErrChatAlreadyExists
	case ChatsDirectKeyKey:
		return ErrDirectChatExists
	default:
		return err
	}
}

func (s *ChatsStorage) AddChatMembers(ctx context.Context, chatId string, members []string) error {
	if len(members) == 0 {
		return ErrEmptyMembers
	}

	builder := sq.Insert("chat_members").
		Columns("chat_id", "user_id").
		PlaceholderFormat(sq.Dollar)

	for _, member := range members {
		builder = builder.Values(chatId, member)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch constraintName(err) {
	case ChatMembersChatIdForeignKey:
		return ErrChatNotFound
	case ChatMembersPrimaryKey:
		return ErrAlreadyMember
	default:
		return err
	}
}

func (s *ChatsStorage) DeleteChatMembers(ctx context.Context, chatId string, members []string) error {
	if len(members) == 0 {
		return ErrEmptyMembers
	}

	query, args, err := sq.Delete("chat_members").
		Where(sq.Eq{
			"chat_id": chatId,
			"user_id": members,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *ChatsStorage) GetChat(ctx context.Context, chatId string) (*models.Chat, error) {
	query, args, err := sq.Select("chat_id", "is_group", "chat_name", "group_pic", "group_admin", "direct_key", "created_at", "updated_at").
		From("chats").
		Where(sq.Eq{"chat_id": chatId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	chat := models.Chat{}
	err = s.db.GetContext(ctx, &chat, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	} else if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *ChatsStorage) getChatMembers(ctx context.Context, chatId string) ([]models.UserSummary, error) {
	query, args, err := sq.Select("m.user_id", "coalesce(u.username, '') AS username",
		"coalesce(u.profile_pic, '') AS profile_pic", "coalesce(u.avatar_color, '') AS avatar_color",
		"coalesce(u.is_online, false) AS is_online").
		From("chat_members m").
		LeftJoin("users u USING(user_id)").
		Where(sq.Eq{"m.chat_id": chatId}).
		OrderBy("m.user_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	members := make([]models.UserSummary, 0)
	err = s.db.SelectContext(ctx, &members, query, args...)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *ChatsStorage) GetChatWithMembers(ctx context.Context, chatId string) (*models.ChatWithMembers, error) {
	chat, err := s.GetChat(ctx, chatId)

	if err != nil {
		return nil, err
	}

	members, err := s.getChatMembers(ctx, chatId)
	if err != nil {
		return nil, err
	}

	full := models.ChatWithMembers{
		Chat:    *chat,
		Members: members,
	}

	latest, err := s.getLatestMessage(ctx, chatId)
	if err != nil {
		return nil, err
	}
	full.LatestMessage = latest

	return &full, nil
}

func (s *ChatsStorage) getLatestMessage(ctx context.Context, chatId string) (*models.Message, error) {
	query, args, err := sq.Select("latest_message").
		From("chats").
		Where(sq.Eq{"chat_id": chatId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	var latestId sql.NullString
	err = s.db.GetContext(ctx, &latestId, query, args...)
	if err != nil || !latestId.Valid {
		return nil, err
	}

	msgs := NewMessagesStorage(s.db)
	msg, err := msgs.GetMessage(ctx, latestId.String)
	if errors.Is(err, ErrMessageNotFound) {
		return nil, nil
	}
	return msg, err
}

func (s *ChatsStorage) UserIsMember(ctx context.Context, chatId string, userId string) (bool, error) {
	// Missing chats surface as ErrChatNotFound rather than a bare "false"
	_, err := s.GetChat(ctx, chatId)
	if err != nil {
		return false, err
	}

	query, args, err := sq.Select("1").
		From("chat_members").
		Where(sq.Eq{
			"chat_id": chatId,
			"user_id": userId,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return false, err
	}

	ok := false
	row := s.db.QueryRowxContext(ctx, query, args...)
	err = row.Scan(&ok)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return ok, nil
}

// FindDirectChat returns the direct chat whose member set is exactly the
// unordered pair (userA, userB), or ErrChatNotFound.
func (s *ChatsStorage) FindDirectChat(ctx context.Context, userA, userB string) (*models.ChatWithMembers, error) {
	query, args, err := sq.Select("c.chat_id").
		From("chats c").
		Join("chat_members a ON a.chat_id = c.chat_id").
		Join("chat_members b ON b.chat_id = c.chat_id").
		Where(sq.Eq{
			"c.is_group": false,
			"a.user_id":  userA,
			"b.user_id":  userB,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	var chatId string
	err = s.db.GetContext(ctx, &chatId, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	} else if err != nil {
		return nil, err
	}
	return s.GetChatWithMembers(ctx, chatId)
}

// GetUserChats lists every chat the user belongs to, most recently updated
// first, each with members and latest-message preview.
func (s *ChatsStorage) GetUserChats(ctx context.Context, userId string) ([]models.ChatWithMembers, error) {
	query, args, err := sq.Select("c.chat_id").
		From("chats c").
		Join("chat_members m ON m.chat_id = c.chat_id").
		Where(sq.Eq{"m.user_id": userId}).
		OrderBy("c.updated_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err = s.db.SelectContext(ctx, &ids, query, args...)
	if err != nil {
		return nil, err
	}

	chats := make([]models.ChatWithMembers, 0, len(ids))
	for _, id := range ids {
		chat, err := s.GetChatWithMembers(ctx, id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, nil
}

func (s *ChatsStorage) updateChat(ctx context.Context, chatId string, set map[string]interface{}) error {
	query, args, err := sq.Update("chats").
		SetMap(set).
		Where(sq.Eq{"chat_id": chatId}).
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
		return ErrChatNotFound
	}
	return nil
}

func (s *ChatsStorage) RenameChat(ctx context.Context, chatId string, name string) error {
	return s.updateChat(ctx, chatId, map[string]interface{}{"chat_name": name})
}

func (s *ChatsStorage) UpdateGroupPic(ctx context.Context, chatId string, groupPic string) error {
	return s.updateChat(ctx, chatId, map[string]interface{}{"group_pic": groupPic})
}

func (s *ChatsStorage) SetLatestMessage(ctx context.Context, chatId string, messageId string, at time.Time) error {
	return s.updateChat(ctx, chatId, map[string]interface{}{
		"latest_message": messageId,
		"updated_at":     at,
	})
}

// DeleteChat removes the chat row; members, messages and reactions go with
// it via ON DELETE CASCADE.
func (s *ChatsStorage) DeleteChat(ctx context.Context, chatId string) error {
	query, args, err := sq.Delete("chats").
		Where(sq.Eq{"chat_id": chatId}).
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
		return ErrChatNotFound
	}
	return nil
}
