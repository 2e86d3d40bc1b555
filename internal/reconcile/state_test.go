package reconcile

import (
	"testing"
	"time"

	"github.com/Ignsass/chat-app/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceId = "74cccd17-9c56-490b-b721-88c027976863"
	bobId   = "67f85047-09d0-42a2-a5ee-9ce8db28cb07"
	caroId  = "253becbb-76b1-4471-9ff3-529462925899"

	directChatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"
	groupChatId  = "256e3354-8263-4913-8bdd-345bd04d962e"
)

func directChat() models.ChatWithMembers {
	return models.ChatWithMembers{
		Chat: models.Chat{ChatID: directChatId},
		Members: []models.UserSummary{
			{UserID: aliceId, Username: "alice"},
			{UserID: bobId, Username: "bob"},
		},
	}
}

func groupChat() models.ChatWithMembers {
	return models.ChatWithMembers{
		Chat: models.Chat{ChatID: groupChatId, IsGroup: true, ChatName: "friends"},
		Members: []models.UserSummary{
			{UserID: aliceId, Username: "alice"},
			{UserID: bobId, Username: "bob"},
			{UserID: caroId, Username: "caro"},
		},
	}
}

func message(id, chatId, sender, content string) models.Message {
	return models.Message{
		MessageID: id,
		ChatID:    chatId,
		Sender:    models.UserSummary{UserID: sender},
		Content:   content,
		Reactions: []models.Reaction{},
		SentAt:    time.Now().UTC(),
	}
}

func Test_ApplyMessage_AppendsToOpenChat(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat()})
	s.OpenChat(directChatId, nil)

	msg := message("m1", directChatId, bobId, "hi")
	s.ApplyMessage(msg)

	require.Len(t, s.Messages(), 1)
	assert.Equal(t, "hi", s.Messages()[0].Content)

	require.NotNil(t, s.Chats()[0].LatestMessage)
	assert.Equal(t, "m1", s.Chats()[0].LatestMessage.MessageID)
}

func Test_ApplyMessage_DuplicateDeliveryIsNoop(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat()})
	s.OpenChat(directChatId, nil)

	msg := message("m1", directChatId, bobId, "hi")

	// The sender applies locally and then sees its own broadcast echo
	s.ApplyMessage(msg)
	s.ApplyMessage(msg)

	assert.Len(t, s.Messages(), 1, "same message id should not append twice")
}

func Test_ApplyMessage_ClosedChatOnlyPatchesPreview(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat(), groupChat()})
	s.OpenChat(directChatId, nil)

	s.ApplyMessage(message("m1", groupChatId, caroId, "yo"))

	assert.Empty(t, s.Messages(), "message for another chat must not leak into the open list")
	require.NotNil(t, s.Chats()[1].LatestMessage)
	assert.Equal(t, "m1", s.Chats()[1].LatestMessage.MessageID)
}

func Test_ApplyReaction_ReplacesCollection(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat()})
	s.OpenChat(directChatId, []models.Message{message("m1", directChatId, bobId, "hi")})
	s.ApplyMessage(message("m1", directChatId, bobId, "hi"))

	updated := message("m1", directChatId, bobId, "hi")
	updated.Reactions = []models.Reaction{{UserID: aliceId, Emoji: "👍"}}
	s.ApplyReaction(updated)

	require.Len(t, s.Messages()[0].Reactions, 1)
	assert.Equal(t, "👍", s.Messages()[0].Reactions[0].Emoji)

	// Preview carries reactions too
	require.NotNil(t, s.Chats()[0].LatestMessage)
	require.Len(t, s.Chats()[0].LatestMessage.Reactions, 1)

	// A re-reaction replaces, never accumulates
	updated.Reactions = []models.Reaction{{UserID: aliceId, Emoji: "😂"}}
	s.ApplyReaction(updated)
	s.ApplyReaction(updated)

	require.Len(t, s.Messages()[0].Reactions, 1)
	assert.Equal(t, "😂", s.Messages()[0].Reactions[0].Emoji)
}

func Test_ApplyReaction_UnknownMessageIsNoop(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat()})
	s.OpenChat(directChatId, nil)

	updated := message("m404", directChatId, bobId, "hi")
	updated.Reactions = []models.Reaction{{UserID: aliceId, Emoji: "👍"}}
	s.ApplyReaction(updated)

	assert.Empty(t, s.Messages())
}

func Test_ApplyUserPatch_OnlyCarriedFieldsChange(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat(), groupChat()})
	s.OpenChat(directChatId, []models.Message{message("m1", directChatId, bobId, "hi")})

	newName := "bobby"
	s.ApplyUserPatch(models.UserPatch{UserID: bobId, Username: &newName})

	assert.Equal(t, "bobby", s.Chats()[0].Members[1].Username)
	assert.Equal(t, "bobby", s.Chats()[1].Members[1].Username)
	assert.Equal(t, "bobby", s.Messages()[0].Sender.Username)

	assert.Equal(t, "alice", s.Chats()[0].Members[0].Username, "other members keep their names")
	assert.False(t, s.Chats()[0].Members[1].IsOnline, "absent patch fields keep prior values")
}

func Test_ApplyUserPatch_PresenceFlip(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{groupChat()})

	online := true
	s.ApplyUserPatch(models.UserPatch{UserID: caroId, IsOnline: &online})
	assert.True(t, s.Chats()[0].Members[2].IsOnline)
	assert.Equal(t, "caro", s.Chats()[0].Members[2].Username, "presence patch must not blank the name")

	online = false
	s.ApplyUserPatch(models.UserPatch{UserID: caroId, IsOnline: &online})
	assert.False(t, s.Chats()[0].Members[2].IsOnline)
}

func Test_ApplyUserDeleted_DirectChatVanishes(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat(), groupChat()})
	s.OpenChat(directChatId, []models.Message{message("m1", directChatId, bobId, "hi")})

	s.ApplyUserDeleted(bobId)

	require.Len(t, s.Chats(), 1, "the direct chat with the deleted user disappears")
	assert.Equal(t, groupChatId, s.Chats()[0].ChatID)

	assert.Equal(t, "", s.OpenChatID(), "deleting the peer closes the on-screen chat")
	assert.Empty(t, s.Messages())
}

func Test_ApplyUserDeleted_GroupOnlyShedsMember(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{groupChat()})
	s.OpenChat(groupChatId, nil)

	s.ApplyUserDeleted(bobId)

	require.Len(t, s.Chats(), 1, "group chats survive member deletion")
	require.Len(t, s.Chats()[0].Members, 2)
	assert.Equal(t, aliceId, s.Chats()[0].Members[0].UserID)
	assert.Equal(t, caroId, s.Chats()[0].Members[1].UserID)
	assert.Equal(t, groupChatId, s.OpenChatID(), "group stays open")
}

func Test_ApplyUserDeleted_Idempotent(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat(), groupChat()})

	s.ApplyUserDeleted(bobId)
	s.ApplyUserDeleted(bobId)

	require.Len(t, s.Chats(), 1)
	assert.Len(t, s.Chats()[0].Members, 2)
}

func Test_AddChat_DuplicateIgnored(t *testing.T) {
	s := NewState()
	s.AddChat(directChat())
	s.AddChat(directChat())
	require.Len(t, s.Chats(), 1)

	s.AddChat(groupChat())
	require.Len(t, s.Chats(), 2)
	assert.Equal(t, groupChatId, s.Chats()[0].ChatID, "new chat goes to the top")
}

func Test_RemoveChat_ClosesOpenChat(t *testing.T) {
	s := NewState()
	s.SetChats([]models.ChatWithMembers{directChat(), groupChat()})
	s.OpenChat(groupChatId, []models.Message{message("m1", groupChatId, caroId, "yo")})

	s.RemoveChat(groupChatId)

	require.Len(t, s.Chats(), 1)
	assert.Equal(t, "", s.OpenChatID())
	assert.Empty(t, s.Messages())
}
