package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/Ignsass/chat-app/internal/models"
	storage "github.com/Ignsass/chat-app/internal/storages"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyMessage = fmt.Errorf("%w: message needs content or an attachment", ErrBusinessLogicViolation)
)

type SendMessageRequest struct {
	ChatID     string `json:"chatId" validate:"required,uuid"`
	Content    string `json:"content"`
	Attachment string `json:"attachment"`
}

type MessagesUsecase struct {
	registry storage.Registry
	notify   Notifier
	log      logrus.FieldLogger
}

func NewMessagesUsecase(r storage.Registry, notify Notifier, log logrus.FieldLogger) *MessagesUsecase {
	return &MessagesUsecase{
		registry: r,
		notify:   notify,
		log:      log,
	}
}

// SendMessage persists a message, bumps the chat's latest-message preview
// and relays the persisted record to the chat's room. The sender applies
// the returned message locally and must not wait for its own echo.
func (u *MessagesUsecase) SendMessage(ctx context.Context, senderId string, req SendMessageRequest) (msg *models.Message, err error) {
	if req.Content == "" && req.Attachment == "" {
		return nil, ErrEmptyMessage
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		chats := r.GetChatsStore()
		msgs := r.GetMessagesStore()

		isMember, err := chats.UserIsMember(ctx, req.ChatID, senderId)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrNotChatMember
		}

		now := time.Now().UTC()
		record := models.Message{
			MessageID:  uuid.NewString(),
			ChatID:     req.ChatID,
			Sender:     models.UserSummary{UserID: senderId},
			Content:    req.Content,
			Attachment: req.Attachment,
			SentAt:     now,
		}

		if err = msgs.PutMessage(ctx, &record); err != nil {
			return err
		}
		if err = chats.SetLatestMessage(ctx, req.ChatID, record.MessageID, now); err != nil {
			return err
		}

		// Reload for the sender summary the clients render from
		msg, err = msgs.GetMessage(ctx, record.MessageID)
		if err != nil {
			return err
		}

		u.publishMessageSent(ctx, r, msg, chats)
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.notify.RelayMessage(msg)
	return msg, nil
}

// GetMessages returns the chat history, members only.
func (u *MessagesUsecase) GetMessages(ctx context.Context, selfId string, chatId string) ([]models.Message, error) {
	isMember, err := u.registry.GetChatsStore().UserIsMember(ctx, chatId, selfId)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotChatMember
	}
	return u.registry.GetMessagesStore().GetChatMessages(ctx, chatId)
}

// AddReaction sets the requester's reaction on a message, replacing any
// prior one, and relays the message's post-mutation state.
func (u *MessagesUsecase) AddReaction(ctx context.Context, selfId string, messageId string, emoji string) (msg *models.Message, err error) {
	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		msgs := r.GetMessagesStore()

		existing, err := msgs.GetMessage(ctx, messageId)
		if err != nil {
			return err
		}

		isMember, err := r.GetChatsStore().UserIsMember(ctx, existing.ChatID, selfId)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrNotChatMember
		}

		if err = msgs.SetReaction(ctx, messageId, selfId, emoji); err != nil {
			return err
		}

		msg, err = msgs.GetMessage(ctx, messageId)
		if err != nil {
			return err
		}

		if pubErr := r.GetUpdatesStore().ReactionSet(&models.ReactionSet{
			UpdateMeta: models.UpdateMeta{Timestamp: time.Now().UTC()},
			MessageID:  msg.MessageID,
			ChatID:     msg.ChatID,
			Reactions:  msg.Reactions,
		}); pubErr != nil {
			u.log.WithError(pubErr).Warning("can't publish reaction-set update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.notify.RelayReaction(msg)
	return msg, nil
}

func (u *MessagesUsecase) publishMessageSent(ctx context.Context, r storage.Registry, msg *models.Message, chats *storage.ChatsStorage) {
	full, err := chats.GetChatWithMembers(ctx, msg.ChatID)
	audience := []string{}
	if err == nil {
		audience = memberIds(full.Members)
	}

	if err := r.GetUpdatesStore().MessageSent(&models.MessageSent{
		UpdateMeta: models.UpdateMeta{
			Timestamp: msg.SentAt,
			Audience:  audience,
		},
		Message: *msg,
	}); err != nil {
		u.log.WithError(err).Warning("can't publish message-sent update")
	}
}
