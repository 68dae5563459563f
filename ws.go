package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Field limits applied at the boundary. Oversized input is clamped, never
// rejected; only a missing university is an error.
const (
	maxUniversityLen = 80
	maxInterests     = 10
	maxInterestLen   = 40
	maxMessageLen    = 2000
)

// clientEvent is the inbound wire envelope.
type clientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type errNotice struct {
	Message string `json:"message"`
}

type queuedNotice struct {
	Message string `json:"message"`
}

type connectedNotice struct {
	ID string `json:"id"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS layer for the HTTP endpoints;
	// the WS handshake is guarded by the ephemeral ticket instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// router validates inbound events and dispatches them to the hub, applying
// the rate limiter to the outbound notices that can be provoked cheaply.
type router struct {
	hub     *Hub
	limiter *rateLimiter
}

func wsHandler(hub *Hub, limiter *rateLimiter) http.HandlerFunc {
	rt := &router{hub: hub, limiter: limiter}
	return func(w http.ResponseWriter, r *http.Request) {
		// Browsers can't set headers on a WS handshake, so the ticket
		// arrives as a query param.
		if !validConnToken(r.URL.Query().Get("token")) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WS upgrade error: %v", err)
			return
		}

		c := &client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan serverEvent, 16),
		}
		hub.register(c)

		// Tell the client its own id so it can tell relayed messages apart.
		c.send <- serverEvent{Event: "connected", Data: connectedNotice{ID: c.id}}

		// Start writer
		go clientWriter(c)
		// Start reader (blocks)
		rt.clientReader(c)
	}
}

func (rt *router) clientReader(c *client) {
	defer func() {
		rt.hub.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var evt clientEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			rt.safeEmit(c, "match_error", errNotice{Message: "Invalid event format."})
			continue
		}
		rt.dispatch(c, evt)
	}
}

func clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			// ping to keep the connection alive
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound event. Bad input of any shape ends here as a
// bounded error notice at worst; it never tears the connection down.
func (rt *router) dispatch(c *client, evt clientEvent) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("event %q from %s panicked: %v", evt.Event, c.id, p)
			rt.safeEmit(c, "match_error", errNotice{Message: "Could not process your request."})
		}
	}()

	switch evt.Event {
	case "find_partner":
		rt.handleFindPartner(c, evt.Data)
	case "requeue":
		rt.handleRequeue(c)
	case "send_message":
		rt.handleSendMessage(c, evt.Data)
	case "typing":
		rt.handleTyping(c, evt.Data)
	case "skip":
		rt.handleSkip(c)
	case "leave":
		rt.handleLeave(c)
	default:
		rt.safeEmit(c, "match_error", errNotice{Message: "Unknown event."})
	}
}

// safeEmit delivers an event unless the client has burned through its rate
// budget. Dropping here only loses the notice, never the state change that
// preceded it.
func (rt *router) safeEmit(c *client, event string, data any) {
	if !rt.limiter.checkRate(c.id) {
		return
	}
	c.trySend(serverEvent{Event: event, Data: data})
}

// clampRunes truncates s to at most n runes.
func clampRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// cleanProfile applies the boundary limits. The only rejection is a
// university that is empty after trimming.
func cleanProfile(p Profile) (Profile, bool) {
	uni := clampRunes(strings.TrimSpace(p.University), maxUniversityLen)
	if uni == "" {
		return Profile{}, false
	}
	interests := p.Interests
	if len(interests) > maxInterests {
		interests = interests[:maxInterests]
	}
	cleaned := make([]string, 0, len(interests))
	for _, s := range interests {
		cleaned = append(cleaned, clampRunes(s, maxInterestLen))
	}
	return Profile{University: uni, Interests: cleaned}, true
}

func (rt *router) handleFindPartner(c *client, data json.RawMessage) {
	var raw Profile
	_ = json.Unmarshal(data, &raw) // missing or malformed fields stay zero

	clean, ok := cleanProfile(raw)
	if !ok {
		rt.safeEmit(c, "match_error", errNotice{Message: "University is required."})
		return
	}
	rt.pair(c, clean, true)
}

func (rt *router) handleRequeue(c *client) {
	if !rt.limiter.checkRate(c.id) {
		return
	}

	rt.hub.mu.Lock()
	saved := c.profile
	rt.hub.mu.Unlock()

	if saved == nil || saved.University == "" {
		rt.safeEmit(c, "match_error", errNotice{Message: "No saved preferences to requeue."})
		return
	}
	rt.pair(c, *saved, false)
}

// pair is the shared find_partner/requeue path: save the profile when asked,
// end any stale room, try an immediate match and seat both sides, otherwise
// record the wait. All mutations happen under one hub lock so a concurrent
// attempt can't grab the same candidate.
func (rt *router) pair(c *client, p Profile, save bool) {
	h := rt.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if save {
		saved := p
		c.profile = &saved
	}

	// A fresh pairing supersedes whatever room the client is still seated
	// in, and replaces any previous wait: a connection holds at most one.
	h.endSessionByClientLocked(c, ReasonEnded)
	h.queue.dequeueAll(c.id)

	roomID, partner := h.queue.tryMatch(c, p)
	if partner == nil {
		h.queue.enqueue(c, p)
		rt.safeEmit(c, "queued", queuedNotice{Message: "Waiting for a partner…"})
		return
	}

	pc := partner.client
	h.createRoomLocked(roomID, c, pc)

	// One common list, spelled the requester's way, shown to both members.
	common := commonInterests(p.Interests, partner.profile.Interests)
	requester := Participant{ID: c.id, University: p.University, Interests: p.Interests}
	candidate := Participant{ID: pc.id, University: partner.profile.University, Interests: partner.profile.Interests}

	c.trySend(serverEvent{Event: "match_found", Data: MatchFound{
		RoomID: roomID, You: requester, Partner: candidate, CommonInterests: common,
	}})
	pc.trySend(serverEvent{Event: "match_found", Data: MatchFound{
		RoomID: roomID, You: candidate, Partner: requester, CommonInterests: common,
	}})
}

type sendMessageRequest struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

func (rt *router) handleSendMessage(c *client, data json.RawMessage) {
	if !rt.limiter.checkRate(c.id) {
		return
	}

	var req sendMessageRequest
	_ = json.Unmarshal(data, &req)

	text := clampRunes(req.Text, maxMessageLen)
	if strings.TrimSpace(text) == "" {
		return
	}

	h := rt.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	r := rt.resolveRoomLocked(c, req.RoomID)
	if r == nil {
		return
	}

	msg := ChatMessage{From: c.id, Text: text, Ts: time.Now().UnixMilli()}
	// Relay to both members; the sender's echo confirms delivery.
	for _, m := range r.members {
		m.trySend(serverEvent{Event: "message", Data: msg})
	}
}

type typingRequest struct {
	RoomID string `json:"roomId"`
	State  bool   `json:"state"`
}

func (rt *router) handleTyping(c *client, data json.RawMessage) {
	var req typingRequest
	_ = json.Unmarshal(data, &req)

	h := rt.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	r := rt.resolveRoomLocked(c, req.RoomID)
	if r == nil {
		return
	}

	// Never echoed back to the sender.
	for _, m := range r.members {
		if m.id == c.id {
			continue
		}
		m.trySend(serverEvent{Event: "typing", Data: TypingNotice{From: c.id, State: req.State}})
	}
}

// resolveRoomLocked finds the active room addressed by roomID, falling back
// to the client's current room. Unknown rooms and rooms the client is not a
// member of resolve to nil; callers ignore those sends silently.
func (rt *router) resolveRoomLocked(c *client, roomID string) *room {
	if roomID == "" {
		roomID = c.roomID
	}
	r, ok := rt.hub.rooms[roomID]
	if !ok || !r.active || r.members[c.id] == nil {
		return nil
	}
	return r
}

func (rt *router) handleSkip(c *client) {
	h := rt.hub
	h.mu.Lock()
	h.endSessionByClientLocked(c, ReasonSkip)
	h.queue.dequeueAll(c.id)
	h.mu.Unlock()

	// The invoker is only requeued when it explicitly asks; the peer never is.
	c.trySend(serverEvent{Event: "skipped"})
}

func (rt *router) handleLeave(c *client) {
	h := rt.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.endSessionByClientLocked(c, ReasonLeft)
	h.queue.dequeueAll(c.id)
}
