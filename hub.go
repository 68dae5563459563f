package main

import (
	"sync"

	"github.com/gorilla/websocket"
)

// serverEvent is the outbound wire envelope: a named event plus its payload.
type serverEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// client is one WebSocket connection. The id is minted fresh on every
// connect and never resumed. profile and roomID are mutable per-connection
// state and are guarded by the hub mutex, like the queue and room table.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan serverEvent
	profile *Profile // last submitted profile, kept for requeue
	roomID  string   // current room, "" when unseated
}

// trySend queues an event for the client's writer pump without blocking.
// A full buffer drops the event; a slow client never stalls the hub.
func (c *client) trySend(evt serverEvent) {
	select {
	case c.send <- evt:
	default:
	}
}

// room is a two-party chat session. active distinguishes a live room from
// one already being torn down; a room leaves the table only after every
// still-reachable member has been notified.
type room struct {
	id      string
	members map[string]*client
	active  bool
}

// Hub owns all process-wide chat state: the connection registry, the wait
// queue and the room table. One mutex guards all three together so a match
// and a disconnect for the same client can never interleave halfway.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	queue   *queueIndex
	rooms   map[string]*room
}

func newHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		queue:   newQueueIndex(),
		rooms:   make(map[string]*room),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// createRoomLocked seats both clients in a new active room. Callers hold
// h.mu and have already dequeued both sides.
func (h *Hub) createRoomLocked(roomID string, a, b *client) *room {
	r := &room{
		id:      roomID,
		members: map[string]*client{a.id: a, b.id: b},
		active:  true,
	}
	h.rooms[roomID] = r
	a.roomID = roomID
	b.roomID = roomID
	return r
}

// endSessionLocked tears a room down: every still-seated member gets a
// session_ended notice first, and only then is anyone detached. Calling it
// for an unknown or already-ending room is a no-op, so teardown triggered
// from both sides of a disconnect race stays harmless.
func (h *Hub) endSessionLocked(roomID, reason string) {
	r, ok := h.rooms[roomID]
	if !ok || !r.active {
		return
	}
	r.active = false

	// Notify before detach so nobody is silently dropped.
	for _, m := range r.members {
		m.trySend(serverEvent{Event: "session_ended", Data: SessionEnded{
			Reason:     reason,
			CanRequeue: m.profile != nil,
		}})
	}
	for _, m := range r.members {
		if m.roomID == roomID {
			m.roomID = ""
		}
	}
	r.members = nil
	delete(h.rooms, roomID)
}

// endSessionByClientLocked resolves the client's current room, if any, and
// ends it.
func (h *Hub) endSessionByClientLocked(c *client, reason string) {
	if c.roomID != "" {
		h.endSessionLocked(c.roomID, reason)
	}
}

func (h *Hub) endSession(roomID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.endSessionLocked(roomID, reason)
}

// disconnect runs the cleanup for a lost connection: end any current
// session, drop every queue entry, forget the client. If an in-flight match
// already dequeued this client, the dequeue here is a benign no-op.
func (h *Hub) disconnect(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return // cleanup already ran
	}
	delete(h.clients, c.id)
	h.endSessionByClientLocked(c, ReasonDisconnect)
	h.queue.dequeueAll(c.id)
}
