package storage

import (
	"encoding/json"

	"github.com/Ignsass/chat-app/internal/models"
	"github.com/Shopify/sarama"
)

// UpdatesStorage publishes every relayed mutation to the updates topic.
// It mirrors the websocket relay onto a durable feed; consumers that missed
// websocket delivery can rebuild state from here.
type UpdatesStorage struct {
	cfg      *UpdatesStoreConfig
	producer sarama.SyncProducer
}

type UpdatesStoreConfig struct {
	UpdatesTopic string
}

func NewUpdatesStore(p sarama.SyncProducer, cfg *UpdatesStoreConfig) *UpdatesStorage {
	return &UpdatesStorage{
		producer: p,
		cfg:      cfg,
	}
}

type updateEnvelope struct {
	Type   string      `json:"type"`
	Update interface{} `json:"update"`
}

// putUpdate publishes one update keyed so that records about the same chat
// or user land on the same partition and keep their relative order.
func (s *UpdatesStorage) putUpdate(key string, kind string, update interface{}) error {
	bytes, err := json.Marshal(updateEnvelope{
		Type:   kind,
		Update: update,
	})
	if err != nil {
		return err
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.cfg.UpdatesTopic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(bytes),
	})

	return err
}

func (s *UpdatesStorage) MessageSent(msg *models.MessageSent) error {
	return s.putUpdate(msg.Message.ChatID, "message-sent", msg)
}

func (s *UpdatesStorage) ReactionSet(r *models.ReactionSet) error {
	return s.putUpdate(r.ChatID, "reaction-set", r)
}

func (s *UpdatesStorage) ChatCreated(chat *models.ChatCreated) error {
	return s.putUpdate(chat.ChatID, "chat-created", chat)
}

func (s *UpdatesStorage) ChatDeleted(chat *models.ChatDeleted) error {
	return s.putUpdate(chat.ChatID, "chat-deleted", chat)
}

func (s *UpdatesStorage) MemberAdded(member *models.MemberAdded) error {
	return s.putUpdate(member.ChatID, "member-added", member)
}

func (s *UpdatesStorage) MemberRemoved(member *models.MemberRemoved) error {
	return s.putUpdate(member.ChatID, "member-removed", member)
}

func (s *UpdatesStorage) UserUpdated(user *models.UserUpdated) error {
	return s.putUpdate(user.Patch.UserID, "user-updated", user)
}

func (s *UpdatesStorage) UserDeleted(user *models.UserDeleted) error {
	return s.putUpdate(user.UserID, "user-deleted", user)
}
