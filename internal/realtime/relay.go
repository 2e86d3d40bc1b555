package realtime

import (
	"github.com/Ignsass/chat-app/internal/models"
)

// Relay forwards persisted state changes into the hub. Every method is
// fire-and-forget: the caller has already committed the write, delivery
// gets no acknowledgement, and clients that missed an event recover it on
// their next explicit fetch.
//
// Message and reaction relays target the full chat room, the sender
// included. The sending client applies its own write locally on persist
// success, so the echo lands as an identity-keyed no-op in its reconciler.
type Relay struct {
	hub *Hub
}

func NewRelay(hub *Hub) *Relay {
	return &Relay{hub: hub}
}

// RelayMessage fans a persisted message out to its chat's room.
func (r *Relay) RelayMessage(msg *models.Message) {
	if msg == nil || msg.ChatID == "" {
		return
	}
	r.hub.Broadcast(msg.ChatID, EventMessageReceived, msg)
}

// RelayReaction fans out the post-mutation state of a reacted-to message.
func (r *Relay) RelayReaction(msg *models.Message) {
	if msg == nil || msg.ChatID == "" {
		return
	}
	r.hub.Broadcast(msg.ChatID, EventReactionReceived, msg)
}

// UserUpdated broadcasts a profile patch globally; clients filter by
// membership themselves.
func (r *Relay) UserUpdated(patch models.UserPatch) {
	r.hub.BroadcastAll(EventUserUpdated, patch)
}

// UserDeleted broadcasts an account removal globally.
func (r *Relay) UserDeleted(userID string) {
	r.hub.BroadcastAll(EventUserDeleted, userID)
}

// UserStatusChanged broadcasts an online/offline flip globally.
func (r *Relay) UserStatusChanged(patch models.UserPatch) {
	r.hub.BroadcastAll(EventUserStatusChanged, patch)
}
