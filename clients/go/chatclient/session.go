package chatclient

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle of the open conversation view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ErrSendInFlight is returned when Send is called while a previous send has
// not resolved. The UI disables the send control for that window.
var ErrSendInFlight = errors.New("chatclient: send already in flight")

// ErrNotReady is returned when Send is called with no conversation open.
var ErrNotReady = errors.New("chatclient: no open conversation")

// Session holds the client-side chat state: the sidebar conversation list
// and the single open conversation with its message history. One
// conversation is open at a time; opening another leaves the previous room.
type Session struct {
	api API
	ch  Channel

	mu      sync.Mutex
	state   State
	openID  string
	epoch   uint64
	lastErr error
	sending bool

	messages      []Message
	conversations []Conversation
}

// NewSession creates a session over the given API and channel.
func NewSession(api API, ch Channel) *Session {
	return &Session{api: api, ch: ch, state: StateIdle}
}

// Open switches the session to the given conversation: leaves the previous
// room, clears the visible history, loads the stored history, and only then
// joins the room so no live event can precede its own history.
func (s *Session) Open(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.openID = conversationID
	s.state = StateLoading
	s.lastErr = nil
	s.messages = nil
	s.mu.Unlock()

	// Best effort; a stale join on the old room is superseded by the next
	// join because the server keeps one room per socket.
	_ = s.ch.Leave()

	history, err := s.api.Messages(ctx, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// A newer Open superseded this one; drop the result.
		return nil
	}
	if err != nil {
		s.state = StateError
		s.lastErr = err
		return err
	}
	s.messages = history
	if err := s.ch.Join(conversationID); err != nil {
		s.state = StateError
		s.lastErr = err
		return err
	}
	s.state = StateReady
	return nil
}

// Close leaves the open conversation and returns the session to idle. The
// channel itself stays connected for sidebar previews.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.openID = ""
	s.state = StateIdle
	s.messages = nil
	s.lastErr = nil
	_ = s.ch.Leave()
}

// Send posts the text to the open conversation's peer. The message is
// appended from the server response, never from local input, so the visible
// history always matches a stored row. After the append the message is
// emitted on the channel for the peer; emission is best effort.
func (s *Session) Send(ctx context.Context, receiverID, text string) (*Message, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	if s.sending {
		s.mu.Unlock()
		return nil, ErrSendInFlight
	}
	s.sending = true
	conversationID := s.openID
	epoch := s.epoch
	s.mu.Unlock()

	msg, err := s.api.Send(ctx, SendRequest{
		ReceiverID:     receiverID,
		Text:           text,
		ConversationID: conversationID,
	})

	s.mu.Lock()
	s.sending = false
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.epoch == epoch && s.state == StateReady {
		s.messages = append(s.messages, *msg)
	}
	s.touchPreview(msg)
	s.mu.Unlock()

	_ = s.ch.Emit(msg)
	return msg, nil
}

// RefreshConversations reloads the sidebar from the server.
func (s *Session) RefreshConversations(ctx context.Context) error {
	convs, err := s.api.Conversations(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conversations = convs
	s.mu.Unlock()
	return nil
}

// Run pumps channel events into the session until the channel closes or the
// context is cancelled. Call it in its own goroutine.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.ch.Events():
			if !ok {
				return
			}
			s.HandleEvent(ev)
		}
	}
}

// HandleEvent applies one channel event. A message for the open conversation
// appends to the visible history; a message for any other conversation only
// refreshes its sidebar preview.
func (s *Session) HandleEvent(ev Event) {
	if ev.Type != EventMessage || ev.Message == nil {
		return
	}
	msg := ev.Message

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReady && msg.ConversationID == s.openID {
		for i := range s.messages {
			if s.messages[i].ID == msg.ID {
				return // duplicate delivery
			}
		}
		s.messages = append(s.messages, *msg)
	}
	s.touchPreview(msg)
}

// touchPreview updates the sidebar entry for the message's conversation and
// moves it to the front. Callers hold s.mu.
func (s *Session) touchPreview(msg *Message) {
	for i := range s.conversations {
		if s.conversations[i].ID != msg.ConversationID {
			continue
		}
		conv := s.conversations[i]
		conv.LastMessage = msg.Text
		conv.UpdatedAt = msg.CreatedAt
		copy(s.conversations[1:i+1], s.conversations[:i])
		s.conversations[0] = conv
		return
	}
	// Unknown conversation: the next RefreshConversations picks it up.
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err reports the error that put the session in StateError, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// OpenConversation reports the id of the open conversation, empty when idle.
func (s *Session) OpenConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

// Messages returns a copy of the visible history.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Conversations returns a copy of the sidebar list.
func (s *Session) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}
