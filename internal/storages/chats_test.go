package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ignsass/chat-app/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ChatsStorageTestSuite struct {
	PostgresTestSuite
}

func (s *ChatsStorageTestSuite) TearDownTest() {
	_, err := s.db.Exec("TRUNCATE reactions, messages, chat_members, chats, users")
	require.NoError(s.T(), err, "can't teardown test")
}

func TestChatsStorageTestSuite(t *testing.T) {
	suite.Run(t, &ChatsStorageTestSuite{})
}

func testChat(id string, group bool) *models.Chat {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Chat{
		ChatID:    id,
		IsGroup:   group,
		ChatName:  "test chat",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ChatsStorageTestSuite) Test_CreateChat() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	err := store.CreateChat(ctx, testChat(chatId, false))
	assert.NoError(s.T(), err, "should correctly create chat")

	row := s.db.QueryRow("SELECT count(*) FROM chats WHERE chat_id=$1::uuid", chatId)
	count := 0
	err = row.Scan(&count)
	assert.NoError(s.T(), err, "should be scanned correctly")
	assert.Equal(s.T(), 1, count, "should be exactly 1 row")
}

func (s *ChatsStorageTestSuite) Test_CreateChat_CorrectErrorIfChatExists() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	err := store.CreateChat(ctx, testChat(chatId, false))
	assert.NoError(s.T(), err, "should correctly create chat")

	assert.ErrorIs(s.T(), store.CreateChat(ctx, testChat(chatId, false)), ErrChatAlreadyExists)
}

func (s *ChatsStorageTestSuite) Test_CreateChat_OneDirectChatPerPair() {
	const (
		aliceId = "74cccd17-9c56-490b-b721-88c027976863"
		bobId   = "67f85047-09d0-42a2-a5ee-9ce8db28cb07"
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)

	first := testChat(uuid.NewString(), false)
	key := DirectChatKey(aliceId, bobId)
	first.DirectKey = &key
	require.NoError(s.T(), store.CreateChat(ctx, first))

	// Both orderings of the pair produce the same key; the second insert
	// loses regardless of who asked
	second := testChat(uuid.NewString(), false)
	reversed := DirectChatKey(bobId, aliceId)
	second.DirectKey = &reversed
	assert.ErrorIs(s.T(), store.CreateChat(ctx, second), ErrDirectChatExists)

	// Group chats carry no key and never collide
	assert.NoError(s.T(), store.CreateChat(ctx, testChat(uuid.NewString(), true)))
	assert.NoError(s.T(), store.CreateChat(ctx, testChat(uuid.NewString(), true)))
}

func (s *ChatsStorageTestSuite) Test_AddMember() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	err := store.CreateChat(ctx, testChat(chatId, true))
	assert.NoError(s.T(), err, "should correctly create chat")

	members := []string{
		"74cccd17-9c56-490b-b721-88c027976863",
		"67f85047-09d0-42a2-a5ee-9ce8db28cb07",
	}

	err = store.AddChatMembers(ctx, chatId, members)
	assert.NoError(s.T(), err, "should correctly add members chat")

	row := s.db.QueryRow(`
		SELECT count(*)
		FROM chat_members
		WHERE user_id IN(
		    '74cccd17-9c56-490b-b721-88c027976863',
		    '67f85047-09d0-42a2-a5ee-9ce8db28cb07'
		)`,
	)
	count := 0
	err = row.Scan(&count)
	assert.NoError(s.T(), err, "rows count should be correctly scanned")
	assert.Equal(s.T(), 2, count, "there should be exactly 2 members in a chat")
}

func (s *ChatsStorageTestSuite) Test_AddMember_CorrectErrorIfAlreadyMember() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	const userId = "74cccd17-9c56-490b-b721-88c027976863"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	require.NoError(s.T(), store.CreateChat(ctx, testChat(chatId, true)))
	require.NoError(s.T(), store.AddChatMembers(ctx, chatId, []string{userId}))

	assert.ErrorIs(s.T(), store.AddChatMembers(ctx, chatId, []string{userId}), ErrAlreadyMember)
}

func (s *ChatsStorageTestSuite) Test_AddMember_Atomic() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registry := NewRegistry(s.db, nil, nil)

	err := registry.Atomic(ctx, func(registry Registry) error {
		store := registry.GetChatsStore()
		err := store.CreateChat(ctx, testChat(chatId, true))
		assert.NoError(s.T(), err, "should correctly create chat")

		err = store.AddChatMembers(ctx, chatId, []string{"74cccd17-9c56-490b-b721-88c027976863"})
		assert.NoError(s.T(), err, "should correctly add member")
		return errors.New("bang")
	})

	assert.Error(s.T(), err, "should return error")

	row := s.db.QueryRow(`
		SELECT count(*) FROM chats WHERE chat_id=$1
	`, chatId)
	count := 0
	err = row.Scan(&count)
	assert.NoError(s.T(), err, "rows count should be correctly scanned")
	assert.Equal(s.T(), 0, count, "whole transaction should be rolled back")
}

func (s *ChatsStorageTestSuite) Test_DeleteMember() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	err := store.CreateChat(ctx, testChat(chatId, true))
	assert.NoError(s.T(), err, "should correctly create chat")

	members := []string{
		"74cccd17-9c56-490b-b721-88c027976863",
		"67f85047-09d0-42a2-a5ee-9ce8db28cb07",
	}

	err = store.AddChatMembers(ctx, chatId, members)
	assert.NoError(s.T(), err, "should correctly add members chat")

	err = store.DeleteChatMembers(ctx, chatId, []string{"74cccd17-9c56-490b-b721-88c027976863"})
	assert.NoError(s.T(), err, "should correctly delete member from chat")

	row := s.db.QueryRow(`
		SELECT count(*)
		FROM chat_members
		WHERE user_id = '74cccd17-9c56-490b-b721-88c027976863'`,
	)
	count := 0
	err = row.Scan(&count)
	assert.NoError(s.T(), err, "rows count should be correctly scanned")
	assert.Equal(s.T(), 0, count, "member should be correctly deleted from chat")
}

func (s *ChatsStorageTestSuite) Test_GetChatWithMembers() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	users := NewUsersStorage(s.db)
	require.NoError(s.T(), users.CreateUser(ctx, testUser("67f85047-09d0-42a2-a5ee-9ce8db28cb07", "janedoe")))
	require.NoError(s.T(), users.CreateUser(ctx, testUser("74cccd17-9c56-490b-b721-88c027976863", "johndoe")))

	store := NewChatsStorage(s.db)
	err := store.CreateChat(ctx, testChat(chatId, false))
	assert.NoError(s.T(), err, "should correctly create chat")

	err = store.AddChatMembers(ctx, chatId, []string{
		"74cccd17-9c56-490b-b721-88c027976863",
		"67f85047-09d0-42a2-a5ee-9ce8db28cb07",
	})
	assert.NoError(s.T(), err, "should correctly add members chat")

	chat, err := store.GetChatWithMembers(ctx, chatId)
	assert.NoError(s.T(), err, "should correctly return chat with members")
	assert.Equal(s.T(), chatId, chat.ChatID)

	require.Len(s.T(), chat.Members, 2, "should contain all chat members")
	assert.Equal(s.T(), "janedoe", chat.Members[0].Username)
	assert.Equal(s.T(), "johndoe", chat.Members[1].Username)
	assert.Nil(s.T(), chat.LatestMessage, "no messages sent yet")
}

func (s *ChatsStorageTestSuite) Test_GetChatWithMembers_KeepsDanglingMembers() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	const goneUserId = "74cccd17-9c56-490b-b721-88c027976863"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	require.NoError(s.T(), store.CreateChat(ctx, testChat(chatId, true)))
	require.NoError(s.T(), store.AddChatMembers(ctx, chatId, []string{goneUserId}))

	// goneUserId has no users row: the membership survives with blank profile
	chat, err := store.GetChatWithMembers(ctx, chatId)
	assert.NoError(s.T(), err, "should correctly return chat with members")
	require.Len(s.T(), chat.Members, 1)
	assert.Equal(s.T(), goneUserId, chat.Members[0].UserID)
	assert.Equal(s.T(), "", chat.Members[0].Username)
}

func (s *ChatsStorageTestSuite) Test_GetChatWithMembers_CorrectErrorIfChatDoesNotExist() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	_, err := store.GetChatWithMembers(ctx, chatId)
	assert.ErrorIs(s.T(), err, ErrChatNotFound)
}

func (s *ChatsStorageTestSuite) Test_UserIsMember() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	const userId = "74cccd17-9c56-490b-b721-88c027976863"
	const userIdNotMember = "67f85047-09d0-42a2-a5ee-9ce8db28cb07"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	err := store.CreateChat(ctx, testChat(chatId, false))
	assert.NoError(s.T(), err, "should correctly create chat")
	err = store.AddChatMembers(ctx, chatId, []string{userId})
	assert.NoError(s.T(), err, "should correctly add members")

	isMember, err := store.UserIsMember(ctx, chatId, userId)
	assert.NoError(s.T(), err, "should return no error")
	assert.True(s.T(), isMember, "user is member")

	isMember, err = store.UserIsMember(ctx, chatId, userIdNotMember)
	assert.NoError(s.T(), err, "should return no error")
	assert.False(s.T(), isMember, "user is not member")
}

func (s *ChatsStorageTestSuite) Test_UserIsMember_IfChatNotExist() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	const userId = "74cccd17-9c56-490b-b721-88c027976863"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)

	_, err := store.UserIsMember(ctx, chatId, userId)
	assert.ErrorIs(s.T(), err, ErrChatNotFound)
}

func (s *ChatsStorageTestSuite) Test_FindDirectChat() {
	const userA = "74cccd17-9c56-490b-b721-88c027976863"
	const userB = "67f85047-09d0-42a2-a5ee-9ce8db28cb07"
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)

	_, err := store.FindDirectChat(ctx, userA, userB)
	assert.ErrorIs(s.T(), err, ErrChatNotFound, "nothing to find yet")

	require.NoError(s.T(), store.CreateChat(ctx, testChat(chatId, false)))
	require.NoError(s.T(), store.AddChatMembers(ctx, chatId, []string{userA, userB}))

	chat, err := store.FindDirectChat(ctx, userA, userB)
	assert.NoError(s.T(), err, "should find the direct chat")
	assert.Equal(s.T(), chatId, chat.ChatID)

	// The pair is unordered
	chat, err = store.FindDirectChat(ctx, userB, userA)
	assert.NoError(s.T(), err, "should find the chat regardless of argument order")
	assert.Equal(s.T(), chatId, chat.ChatID)
}

func (s *ChatsStorageTestSuite) Test_FindDirectChat_IgnoresGroups() {
	const userA = "74cccd17-9c56-490b-b721-88c027976863"
	const userB = "67f85047-09d0-42a2-a5ee-9ce8db28cb07"
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	require.NoError(s.T(), store.CreateChat(ctx, testChat(chatId, true)))
	require.NoError(s.T(), store.AddChatMembers(ctx, chatId, []string{userA, userB}))

	_, err := store.FindDirectChat(ctx, userA, userB)
	assert.ErrorIs(s.T(), err, ErrChatNotFound, "group chats never match")
}

func (s *ChatsStorageTestSuite) Test_GetUserChats_OrderedByActivity() {
	const userId = "74cccd17-9c56-490b-b721-88c027976863"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	base := time.Now().UTC().Truncate(time.Microsecond)

	chatIds := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		id, _ := uuid.NewRandom()
		chat := testChat(id.String(), false)
		chat.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(s.T(), store.CreateChat(ctx, chat))
		require.NoError(s.T(), store.AddChatMembers(ctx, chat.ChatID, []string{userId}))
		chatIds = append(chatIds, chat.ChatID)
	}

	chats, err := store.GetUserChats(ctx, userId)
	assert.NoError(s.T(), err, "should list user chats")
	require.Len(s.T(), chats, 3)

	// Most recently updated first
	assert.Equal(s.T(), chatIds[2], chats[0].ChatID)
	assert.Equal(s.T(), chatIds[1], chats[1].ChatID)
	assert.Equal(s.T(), chatIds[0], chats[2].ChatID)
}

func (s *ChatsStorageTestSuite) Test_SetLatestMessage_BumpsActivity() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	const userId = "74cccd17-9c56-490b-b721-88c027976863"
	const messageId = "67f85047-09d0-42a2-a5ee-9ce8db28cb07"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	msgs := NewMessagesStorage(s.db)

	require.NoError(s.T(), store.CreateChat(ctx, testChat(chatId, false)))
	require.NoError(s.T(), store.AddChatMembers(ctx, chatId, []string{userId}))

	sentAt := time.Now().UTC().Truncate(time.Microsecond)
	err := msgs.PutMessage(ctx, &models.Message{
		MessageID: messageId,
		ChatID:    chatId,
		Sender:    models.UserSummary{UserID: userId},
		Content:   "Hello, world!",
		SentAt:    sentAt,
	})
	require.NoError(s.T(), err, "should correctly put message")

	err = store.SetLatestMessage(ctx, chatId, messageId, sentAt)
	assert.NoError(s.T(), err, "should correctly set latest message")

	chat, err := store.GetChatWithMembers(ctx, chatId)
	assert.NoError(s.T(), err)
	require.NotNil(s.T(), chat.LatestMessage, "latest message should be loaded")
	assert.Equal(s.T(), messageId, chat.LatestMessage.MessageID)
	assert.True(s.T(), chat.UpdatedAt.Equal(sentAt), "updated_at should follow the latest message")
}

func (s *ChatsStorageTestSuite) Test_DeleteChat_Cascades() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	const userId = "74cccd17-9c56-490b-b721-88c027976863"
	const messageId = "67f85047-09d0-42a2-a5ee-9ce8db28cb07"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	msgs := NewMessagesStorage(s.db)

	require.NoError(s.T(), store.CreateChat(ctx, testChat(chatId, false)))
	require.NoError(s.T(), store.AddChatMembers(ctx, chatId, []string{userId}))
	require.NoError(s.T(), msgs.PutMessage(ctx, &models.Message{
		MessageID: messageId,
		ChatID:    chatId,
		Sender:    models.UserSummary{UserID: userId},
		Content:   "Hello, world!",
		SentAt:    time.Now().UTC(),
	}))
	require.NoError(s.T(), msgs.SetReaction(ctx, messageId, userId, "👍"))

	err := store.DeleteChat(ctx, chatId)
	assert.NoError(s.T(), err, "should correctly delete chat")

	for _, table := range []string{"chats", "chat_members", "messages", "reactions"} {
		count := -1
		err = s.db.GetContext(ctx, &count, "SELECT count(1) FROM "+table)
		assert.NoError(s.T(), err)
		assert.Equal(s.T(), 0, count, table+" should be empty")
	}
}

func (s *ChatsStorageTestSuite) Test_DeleteChat_CorrectErrorIfChatDoesNotExist() {
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewChatsStorage(s.db)
	assert.ErrorIs(s.T(), store.DeleteChat(ctx, chatId), ErrChatNotFound)
}
