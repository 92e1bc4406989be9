package chatclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeAPI struct {
	conversations []Conversation
	histories     map[string][]Message

	messagesErr error
	sendErr     error
	sent        []SendRequest
}

func (f *fakeAPI) Conversations(context.Context) ([]Conversation, error) {
	return f.conversations, nil
}

func (f *fakeAPI) Messages(_ context.Context, conversationID string) ([]Message, error) {
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.histories[conversationID], nil
}

func (f *fakeAPI) Send(_ context.Context, req SendRequest) (*Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, req)
	return &Message{
		ID:             "srv-assigned",
		ConversationID: req.ConversationID,
		SenderID:       "me",
		ReceiverID:     req.ReceiverID,
		Text:           req.Text,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (f *fakeAPI) MarkSeen(context.Context, string) error             { return nil }
func (f *fakeAPI) MarkConversationRead(context.Context, string) error { return nil }

// fakeChannel records the order of channel calls so tests can assert the
// history-then-join sequence.
type fakeChannel struct {
	calls   []string
	emitted []*Message
	events  chan Event
	joinErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan Event, 8)}
}

func (f *fakeChannel) Join(conversationID string) error {
	f.calls = append(f.calls, "join:"+conversationID)
	return f.joinErr
}

func (f *fakeChannel) Leave() error {
	f.calls = append(f.calls, "leave")
	return nil
}

func (f *fakeChannel) Emit(msg *Message) error {
	f.calls = append(f.calls, "emit")
	f.emitted = append(f.emitted, msg)
	return nil
}

func (f *fakeChannel) Events() <-chan Event { return f.events }
func (f *fakeChannel) Close() error         { return nil }

func fixtureAPI() *fakeAPI {
	return &fakeAPI{
		conversations: []Conversation{
			{ID: "conv-1", Participants: []string{"me", "bob"}, LastMessage: "old"},
			{ID: "conv-2", Participants: []string{"me", "carol"}, LastMessage: "older"},
		},
		histories: map[string][]Message{
			"conv-1": {
				{ID: "m1", ConversationID: "conv-1", SenderID: "bob", ReceiverID: "me", Text: "hi"},
				{ID: "m2", ConversationID: "conv-1", SenderID: "me", ReceiverID: "bob", Text: "hello"},
			},
		},
	}
}

func TestOpenLoadsHistoryThenJoins(t *testing.T) {
	api := fixtureAPI()
	ch := newFakeChannel()
	s := NewSession(api, ch)

	if s.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", s.State())
	}
	if err := s.Open(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.State() != StateReady {
		t.Errorf("state = %v, want ready", s.State())
	}
	if got := s.Messages(); len(got) != 2 || got[0].ID != "m1" {
		t.Errorf("history = %v", got)
	}
	// The room join must come after the history fetch so no live event can
	// arrive before its own backlog.
	if len(ch.calls) != 2 || ch.calls[0] != "leave" || ch.calls[1] != "join:conv-1" {
		t.Errorf("channel calls = %v, want [leave join:conv-1]", ch.calls)
	}
}

func TestOpenHistoryFailure(t *testing.T) {
	api := fixtureAPI()
	api.messagesErr = &APIError{Status: 503, Message: "store down"}
	s := NewSession(api, newFakeChannel())

	if err := s.Open(context.Background(), "conv-1"); err == nil {
		t.Fatal("Open succeeded with failing history fetch")
	}
	if s.State() != StateError {
		t.Errorf("state = %v, want error", s.State())
	}
	if s.Err() == nil {
		t.Error("Err() empty in error state")
	}
	if len(s.Messages()) != 0 {
		t.Error("messages present despite failed load")
	}

	// Recovering: a later Open can succeed.
	api.messagesErr = nil
	if err := s.Open(context.Background(), "conv-1"); err != nil {
		t.Fatalf("retry Open: %v", err)
	}
	if s.State() != StateReady || s.Err() != nil {
		t.Errorf("state = %v err = %v after recovery", s.State(), s.Err())
	}
}

func TestOpenSwitchClearsPreviousHistory(t *testing.T) {
	api := fixtureAPI()
	ch := newFakeChannel()
	s := NewSession(api, ch)
	ctx := context.Background()

	if err := s.Open(ctx, "conv-1"); err != nil {
		t.Fatalf("Open conv-1: %v", err)
	}
	if err := s.Open(ctx, "conv-2"); err != nil {
		t.Fatalf("Open conv-2: %v", err)
	}
	if s.OpenConversation() != "conv-2" {
		t.Errorf("open conversation = %q", s.OpenConversation())
	}
	if len(s.Messages()) != 0 {
		t.Errorf("conv-2 history = %v, want empty", s.Messages())
	}
}

func TestLiveEventAppendsToOpenConversation(t *testing.T) {
	api := fixtureAPI()
	s := NewSession(api, newFakeChannel())
	_ = s.RefreshConversations(context.Background())
	if err := s.Open(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	incoming := &Message{ID: "m3", ConversationID: "conv-1", SenderID: "bob", ReceiverID: "me", Text: "new"}
	s.HandleEvent(Event{Type: EventMessage, ConversationID: "conv-1", Message: incoming})

	got := s.Messages()
	if len(got) != 3 || got[2].ID != "m3" {
		t.Fatalf("history after event = %v", got)
	}

	// Redelivery of the same message must not duplicate it.
	s.HandleEvent(Event{Type: EventMessage, ConversationID: "conv-1", Message: incoming})
	if len(s.Messages()) != 3 {
		t.Error("duplicate event appended twice")
	}
}

func TestLiveEventForOtherConversationUpdatesSidebarOnly(t *testing.T) {
	api := fixtureAPI()
	s := NewSession(api, newFakeChannel())
	_ = s.RefreshConversations(context.Background())
	if err := s.Open(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.HandleEvent(Event{Type: EventMessage, ConversationID: "conv-2", Message: &Message{
		ID: "x1", ConversationID: "conv-2", SenderID: "carol", ReceiverID: "me", Text: "psst",
	}})

	if len(s.Messages()) != 2 {
		t.Error("foreign conversation's message appended to open history")
	}
	convs := s.Conversations()
	if convs[0].ID != "conv-2" {
		t.Errorf("sidebar front = %s, want conv-2", convs[0].ID)
	}
	if convs[0].LastMessage != "psst" {
		t.Errorf("sidebar preview = %q, want %q", convs[0].LastMessage, "psst")
	}
}

func TestSendAppendsFromResponseAndEmits(t *testing.T) {
	api := fixtureAPI()
	ch := newFakeChannel()
	s := NewSession(api, ch)
	if err := s.Open(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	msg, err := s.Send(context.Background(), "bob", "outgoing")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.ID != "srv-assigned" {
		t.Errorf("message id = %q, want server-assigned", msg.ID)
	}

	got := s.Messages()
	if len(got) != 3 || got[2].ID != "srv-assigned" {
		t.Fatalf("history after send = %v", got)
	}
	if len(ch.emitted) != 1 || ch.emitted[0].ID != "srv-assigned" {
		t.Errorf("emitted = %v, want the persisted message", ch.emitted)
	}
	if len(api.sent) != 1 || api.sent[0].ConversationID != "conv-1" {
		t.Errorf("send request = %+v", api.sent)
	}
}

func TestSendFailureLeavesHistoryUntouched(t *testing.T) {
	api := fixtureAPI()
	ch := newFakeChannel()
	s := NewSession(api, ch)
	if err := s.Open(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	api.sendErr = &APIError{Status: 502, Message: "gateway"}
	if _, err := s.Send(context.Background(), "bob", "lost"); err == nil {
		t.Fatal("Send succeeded despite API failure")
	}
	if len(s.Messages()) != 2 {
		t.Error("failed send appended a message")
	}
	if len(ch.emitted) != 0 {
		t.Error("failed send emitted on the channel")
	}
	if s.State() != StateReady {
		t.Errorf("state = %v, want ready after failed send", s.State())
	}
}

func TestSendRequiresOpenConversation(t *testing.T) {
	s := NewSession(fixtureAPI(), newFakeChannel())
	if _, err := s.Send(context.Background(), "bob", "hi"); !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want %v", err, ErrNotReady)
	}
}

func TestCloseReturnsToIdle(t *testing.T) {
	s := NewSession(fixtureAPI(), newFakeChannel())
	if err := s.Open(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()
	if s.State() != StateIdle || s.OpenConversation() != "" || len(s.Messages()) != 0 {
		t.Errorf("session not idle after Close: state=%v open=%q", s.State(), s.OpenConversation())
	}
}
