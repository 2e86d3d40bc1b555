// Package reconcile merges inbound realtime events into a client's local
// chat-list and message-list state.
//
// Events may arrive more than once: the sender applies its own writes
// locally and later sees the broadcast echo, and reconnect races can
// duplicate delivery. Every apply below is keyed by entity identity, so a
// repeated event is a no-op and the merge order within one room is the
// arrival order.
package reconcile

import (
	"github.com/Ignsass/chat-app/internal/models"
)

// State is one client's view: the chat list, and the message history of
// the chat currently on screen (if any).
type State struct {
	chats      []models.ChatWithMembers
	openChatID string
	messages   []models.Message
}

func NewState() *State {
	return &State{
		chats:    make([]models.ChatWithMembers, 0),
		messages: make([]models.Message, 0),
	}
}

// SetChats replaces the chat list wholesale, as after a fetchChats call.
func (s *State) SetChats(chats []models.ChatWithMembers) {
	s.chats = append(s.chats[:0:0], chats...)
}

// OpenChat switches the on-screen chat and installs its fetched history.
func (s *State) OpenChat(chatID string, history []models.Message) {
	s.openChatID = chatID
	s.messages = append(s.messages[:0:0], history...)
}

// CloseChat clears the on-screen chat.
func (s *State) CloseChat() {
	s.openChatID = ""
	s.messages = s.messages[:0]
}

func (s *State) OpenChatID() string {
	return s.openChatID
}

func (s *State) Chats() []models.ChatWithMembers {
	return s.chats
}

func (s *State) Messages() []models.Message {
	return s.messages
}

func (s *State) chatIndex(chatID string) int {
	for i := range s.chats {
		if s.chats[i].ChatID == chatID {
			return i
		}
	}
	return -1
}

func (s *State) messageIndex(messageID string) int {
	for i := range s.messages {
		if s.messages[i].MessageID == messageID {
			return i
		}
	}
	return -1
}

// AddChat inserts a chat at the top of the list unless it is already
// present.
func (s *State) AddChat(chat models.ChatWithMembers) {
	if s.chatIndex(chat.ChatID) >= 0 {
		return
	}
	s.chats = append([]models.ChatWithMembers{chat}, s.chats...)
}

// RemoveChat drops a chat from the list (explicit delete or leave). The
// open message list is cleared when it belonged to that chat.
func (s *State) RemoveChat(chatID string) {
	if i := s.chatIndex(chatID); i >= 0 {
		s.chats = append(s.chats[:i], s.chats[i+1:]...)
	}
	if s.openChatID == chatID {
		s.CloseChat()
	}
}

// ApplyMessage merges a message-received event. For the open chat the
// message is appended in arrival order unless its id is already present;
// for any chat only the latest-message preview is patched.
func (s *State) ApplyMessage(msg models.Message) {
	if msg.ChatID == s.openChatID {
		if s.messageIndex(msg.MessageID) < 0 {
			s.messages = append(s.messages, msg)
		}
	}
	if i := s.chatIndex(msg.ChatID); i >= 0 {
		latest := msg
		s.chats[i].LatestMessage = &latest
	}
}

// ApplyReaction merges a reaction-received event: the open-list message
// with the same id gets its reaction collection replaced wholesale.
func (s *State) ApplyReaction(updated models.Message) {
	if i := s.messageIndex(updated.MessageID); i >= 0 {
		s.messages[i].Reactions = append([]models.Reaction(nil), updated.Reactions...)
	}
	if i := s.chatIndex(updated.ChatID); i >= 0 {
		if lm := s.chats[i].LatestMessage; lm != nil && lm.MessageID == updated.MessageID {
			lm.Reactions = append([]models.Reaction(nil), updated.Reactions...)
		}
	}
}

// ApplyUserPatch merges a user-updated or user-status-changed event:
// every member record matching the patched id gets exactly the fields the
// patch carries; absent fields keep their prior values.
func (s *State) ApplyUserPatch(patch models.UserPatch) {
	for i := range s.chats {
		for j := range s.chats[i].Members {
			applyPatch(&s.chats[i].Members[j], patch)
		}
		if lm := s.chats[i].LatestMessage; lm != nil {
			applyPatch(&lm.Sender, patch)
		}
	}
	for i := range s.messages {
		applyPatch(&s.messages[i].Sender, patch)
	}
}

func applyPatch(member *models.UserSummary, patch models.UserPatch) {
	if member.UserID != patch.UserID {
		return
	}
	if patch.Username != nil {
		member.Username = *patch.Username
	}
	if patch.ProfilePic != nil {
		member.ProfilePic = *patch.ProfilePic
	}
	if patch.IsOnline != nil {
		member.IsOnline = *patch.IsOnline
	}
}

// ApplyUserDeleted merges a user-deleted event. Direct chats with the
// deleted user lose their second distinct member and vanish from the list;
// group chats only shed the member record.
func (s *State) ApplyUserDeleted(userID string) {
	kept := s.chats[:0]
	for i := range s.chats {
		chat := s.chats[i]
		if !chat.HasMember(userID) {
			kept = append(kept, chat)
			continue
		}
		if !chat.IsGroup {
			if s.openChatID == chat.ChatID {
				s.CloseChat()
			}
			continue
		}
		members := chat.Members[:0]
		for j := range chat.Members {
			if chat.Members[j].UserID != userID {
				members = append(members, chat.Members[j])
			}
		}
		chat.Members = members
		kept = append(kept, chat)
	}
	s.chats = kept
}
