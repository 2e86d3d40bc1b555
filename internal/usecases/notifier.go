package usecases

import "github.com/Ignsass/chat-app/internal/models"

// Notifier is the realtime relay as seen from the usecases: fire-and-forget
// fan-out of already persisted state. The websocket hub implements it; a
// no-op implementation serves tests.
type Notifier interface {
	RelayMessage(msg *models.Message)
	RelayReaction(msg *models.Message)
	UserUpdated(patch models.UserPatch)
	UserDeleted(userID string)
	UserStatusChanged(patch models.UserPatch)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) RelayMessage(*models.Message)       {}
func (NopNotifier) RelayReaction(*models.Message)      {}
func (NopNotifier) UserUpdated(models.UserPatch)       {}
func (NopNotifier) UserDeleted(string)                 {}
func (NopNotifier) UserStatusChanged(models.UserPatch) {}
