package realtime

import (
	"sync"

	"github.com/RahidMalik/lms-chat/internal/infrastructure/metrics"
)

// Hub is the in-memory room registry for the realtime channel. A room is
// keyed by conversation id and a session belongs to at most one room at a
// time: joining a new room implicitly leaves the previous one. The hub never
// stores events; a session that is not a room member at emission time simply
// never sees that event.
type Hub struct {
	mu          sync.RWMutex
	sessions    map[string]*Session            // session id -> session
	rooms       map[string]map[string]*Session // conversation id -> session id -> session
	sessionRoom map[string]string              // session id -> conversation id
}

// NewHub constructs an empty registry.
func NewHub() *Hub {
	return &Hub{
		sessions:    make(map[string]*Session),
		rooms:       make(map[string]map[string]*Session),
		sessionRoom: make(map[string]string),
	}
}

// Attach registers a connected session. No room is joined on connect.
func (h *Hub) Attach(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	s.Start()
	metrics.WebsocketSessions.Inc()
}

// Detach removes the session from the registry and from its room, if any.
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	_, tracked := h.sessions[s.ID]
	if tracked {
		delete(h.sessions, s.ID)
		h.leaveLocked(s.ID)
	}
	h.mu.Unlock()

	if tracked {
		metrics.WebsocketSessions.Dec()
	}
}

// Join moves the session into the conversation's room, leaving its current
// room first. Joining an untracked session is a no-op.
func (h *Hub) Join(conversationID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.ID]; !ok {
		return
	}
	h.leaveLocked(s.ID)

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Session)
		h.rooms[conversationID] = room
	}
	room[s.ID] = s
	h.sessionRoom[s.ID] = conversationID
}

// Leave removes the session from its current room.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	h.leaveLocked(s.ID)
	h.mu.Unlock()
}

// Room returns the conversation id the session currently occupies, if any.
func (h *Hub) Room(s *Session) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.sessionRoom[s.ID]
	return id, ok
}

// Broadcast delivers payload to every member of the conversation's room
// except the emitting session. The emitter already holds the message from
// the synchronous send response, so it never gets an echo. Delivery failures
// are dropped silently; absent peers catch up from the persisted history.
func (h *Hub) Broadcast(conversationID string, payload []byte, exclude *Session) int {
	h.mu.RLock()
	room := h.rooms[conversationID]
	members := make([]*Session, 0, len(room))
	for _, s := range room {
		if exclude != nil && s.ID == exclude.ID {
			continue
		}
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if err := s.Send(payload); err != nil {
			metrics.BroadcastsDropped.Inc()
			continue
		}
		metrics.BroadcastsDelivered.Inc()
		delivered++
	}
	return delivered
}

// Close terminates all tracked sessions and clears the registry.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[string]*Session)
	h.rooms = make(map[string]map[string]*Session)
	h.sessionRoom = make(map[string]string)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close(1001, "hub shutdown")
	}
	metrics.WebsocketSessions.Set(0)
}

func (h *Hub) leaveLocked(sessionID string) {
	conversationID, ok := h.sessionRoom[sessionID]
	if !ok {
		return
	}
	delete(h.sessionRoom, sessionID)
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}
