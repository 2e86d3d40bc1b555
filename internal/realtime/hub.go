package realtime

import (
	"github.com/sirupsen/logrus"
)

// Hub is the session registry and room router. Rooms are named broadcast
// groups: one per open chat, keyed by chat id, plus one personal room per
// connected user, keyed by user id. All room state is owned by the Run
// loop; connections talk to it through channels only.
type Hub struct {
	// rooms maps a room name to the set of connections currently joined
	rooms map[string]map[*Client]bool

	// clients is every registered connection, roomless ones included
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	broadcast  chan broadcastRequest
	emit       chan emitRequest

	log logrus.FieldLogger
}

type joinRequest struct {
	client *Client
	room   string
}

type broadcastRequest struct {
	// room is empty for a global broadcast
	room    string
	message []byte
}

type emitRequest struct {
	client  *Client
	message []byte
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan broadcastRequest),
		emit:       make(chan emitRequest),
		log:        log,
	}
}

// Run owns the room table. Call in its own goroutine: go hub.Run().
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			client.open = true
			h.clients[client] = true

		case client := <-h.unregister:
			h.dropClient(client)

		case req := <-h.join:
			h.joinRoom(req.client, req.room)

		case req := <-h.broadcast:
			h.deliver(req)

		case req := <-h.emit:
			h.deliverTo(req)
		}
	}
}

// Register adds a freshly upgraded connection. It is a member of no rooms
// until Join is called.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister releases every room membership of the connection. Disconnect
// is always accepted, joined or not.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join adds the connection to room. Memberships accumulate for the
// connection lifetime; there is no explicit leave.
func (h *Hub) Join(client *Client, room string) {
	h.join <- joinRequest{client: client, room: room}
}

// Broadcast emits an event to every connection currently in room.
// Delivery is fire-and-forget: no recipients means a silent drop.
func (h *Hub) Broadcast(room string, event string, payload interface{}) {
	h.send(room, event, payload)
}

// BroadcastAll emits an event to every connection regardless of rooms.
// Used for user-level mutations; filtering happens client-side.
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	h.send("", event, payload)
}

// Emit sends an event to a single connection. Like broadcasts, the actual
// channel write happens inside the Run loop, which is the only goroutine
// allowed to touch (or close) client.send.
func (h *Hub) Emit(client *Client, event string, payload interface{}) {
	message, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.emit <- emitRequest{client: client, message: message}
}

func (h *Hub) send(room string, event string, payload interface{}) {
	message, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.broadcast <- broadcastRequest{room: room, message: message}
}

func (h *Hub) encode(event string, payload interface{}) ([]byte, bool) {
	e, err := NewEvent(event, payload)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("can't encode event payload")
		return nil, false
	}
	message, err := e.Encode()
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("can't encode event")
		return nil, false
	}
	return message, true
}

func (h *Hub) joinRoom(client *Client, room string) {
	if !client.open {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.rooms[room] = true

	h.log.WithFields(logrus.Fields{
		"room":    room,
		"members": len(h.rooms[room]),
	}).Debug("connection joined room")
}

func (h *Hub) dropClient(client *Client) {
	if !client.open {
		return
	}
	client.open = false
	delete(h.clients, client)
	for room := range client.rooms {
		h.leaveRoom(client, room)
	}
	close(client.send)

	h.log.WithField("user_id", client.UserID()).Debug("connection dropped")
}

func (h *Hub) leaveRoom(client *Client, room string) {
	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(clients, client)
	delete(client.rooms, room)
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) deliver(req broadcastRequest) {
	targets := h.clients
	if req.room != "" {
		targets = h.rooms[req.room]
	}

	for client := range targets {
		select {
		case client.send <- req.message:
		default:
			// Client can't keep up; drop it rather than block the loop
			h.dropClient(client)
		}
	}
}

func (h *Hub) deliverTo(req emitRequest) {
	// The client may have been dropped between the request and its
	// arrival here; its send channel is closed then
	if !req.client.open {
		return
	}
	select {
	case req.client.send <- req.message:
	default:
		h.dropClient(req.client)
	}
}
