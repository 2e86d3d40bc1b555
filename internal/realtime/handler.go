package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Ignsass/chat-app/internal/auth"
	"github.com/Ignsass/chat-app/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is handled by the CORS middleware
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Presence persists online/offline flips and propagates them.
type Presence interface {
	SetPresence(ctx context.Context, userID string, online bool) error
}

// Handler upgrades connections and dispatches their inbound events.
type Handler struct {
	hub      *Hub
	relay    *Relay
	verifier *auth.Manager
	presence Presence
	log      logrus.FieldLogger
}

func NewHandler(hub *Hub, relay *Relay, verifier *auth.Manager, presence Presence, log logrus.FieldLogger) *Handler {
	return &Handler{
		hub:      hub,
		relay:    relay,
		verifier: verifier,
		presence: presence,
		log:      log,
	}
}

// ServeWS handles websocket upgrade requests at /ws?token=...
// The personal channel is bound to the token's verified user id, never to
// a client-supplied value.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warning("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	h.log.WithField("user_id", client.UserID()).Info("websocket connected")

	go client.WritePump()
	go h.readLoop(client)
}

func (h *Handler) readLoop(client *Client) {
	wasSetup := false
	client.ReadPump(func(c *Client, e *Event) {
		if h.dispatch(c, e) && !wasSetup {
			wasSetup = true
		}
	})

	// Channel memberships died with the connection; only presence needs
	// explicit teardown.
	if wasSetup {
		h.setPresence(client.UserID(), false)
	}
	h.log.WithField("user_id", client.UserID()).Info("websocket disconnected")
}

// dispatch routes one inbound event; the return reports whether it was a
// completed setup.
func (h *Handler) dispatch(c *Client, e *Event) bool {
	switch e.Name {
	case EventSetup:
		// The payload's asserted identity is ignored; the verified token
		// already named the user.
		h.hub.Join(c, c.UserID())
		h.setPresence(c.UserID(), true)
		h.hub.Emit(c, EventConnected, nil)
		return true

	case EventJoinChat:
		var chatID string
		if err := json.Unmarshal(e.Payload, &chatID); err != nil || chatID == "" {
			h.log.WithField("user_id", c.UserID()).Warning("join chat without chat id")
			return false
		}
		h.hub.Join(c, chatID)

	case EventNewMessage:
		msg := models.Message{}
		if err := json.Unmarshal(e.Payload, &msg); err != nil || msg.ChatID == "" {
			h.log.WithField("user_id", c.UserID()).Warning("new message without chat id")
			return false
		}
		h.relay.RelayMessage(&msg)

	case EventReactionAdded:
		msg := models.Message{}
		if err := json.Unmarshal(e.Payload, &msg); err != nil || msg.ChatID == "" {
			h.log.WithField("user_id", c.UserID()).Warning("reaction without chat id")
			return false
		}
		h.relay.RelayReaction(&msg)

	default:
		h.log.WithField("event", e.Name).Debug("unknown event ignored")
	}
	return false
}

func (h *Handler) setPresence(userID string, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetPresence(ctx, userID, online); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warning("can't update presence")
	}
}
