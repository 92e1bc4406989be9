package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	qport "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
)

type fakeServer struct {
	handlers map[string]qport.Handler
}

func (s *fakeServer) Register(taskType string, h qport.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]qport.Handler)
	}
	s.handlers[taskType] = h
}

func (s *fakeServer) Run(context.Context) error { return nil }

type seenCall struct {
	conversationID, userID string
}

type fakeSeenRepo struct {
	notARepo // panics on everything else
	calls    []seenCall
}

func (r *fakeSeenRepo) MarkConversationSeen(_ context.Context, conversationID, userID string) (int64, error) {
	r.calls = append(r.calls, seenCall{conversationID, userID})
	return 1, nil
}

// notARepo fills the Repository interface for tests that exercise a single
// method.
type notARepo struct{}

func (notARepo) UpsertConversation(context.Context, domain.Conversation) (*domain.Conversation, error) {
	panic("unexpected call")
}
func (notARepo) GetConversation(context.Context, string) (*domain.Conversation, error) {
	panic("unexpected call")
}
func (notARepo) ListConversationsByUser(context.Context, string) ([]domain.Conversation, error) {
	panic("unexpected call")
}
func (notARepo) AppendMessage(context.Context, domain.Message) error { panic("unexpected call") }
func (notARepo) ListMessagesByConversation(context.Context, string) ([]domain.Message, error) {
	panic("unexpected call")
}
func (notARepo) GetMessage(context.Context, string) (*domain.Message, error) {
	panic("unexpected call")
}
func (notARepo) MarkMessageSeen(context.Context, string) error { panic("unexpected call") }
func (notARepo) MarkConversationSeen(context.Context, string, string) (int64, error) {
	panic("unexpected call")
}
func (notARepo) Ping(context.Context) error  { panic("unexpected call") }
func (notARepo) Close(context.Context) error { panic("unexpected call") }

func TestSyncSeenTask(t *testing.T) {
	srv := &fakeServer{}
	repo := &fakeSeenRepo{}
	RegisterSyncSeenTask(srv, repo, zerolog.Nop())

	h, ok := srv.handlers[SyncSeenTaskType]
	if !ok {
		t.Fatalf("handler for %q not registered", SyncSeenTaskType)
	}

	payload, _ := json.Marshal(SyncSeenTaskPayload{ConversationID: "conv-1", UserID: "bob"})
	if err := h(context.Background(), qport.Task{Type: SyncSeenTaskType, Payload: payload}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(repo.calls) != 1 || repo.calls[0] != (seenCall{"conv-1", "bob"}) {
		t.Errorf("calls = %v", repo.calls)
	}
}

func TestSyncSeenTaskSkipsBadPayload(t *testing.T) {
	srv := &fakeServer{}
	repo := &fakeSeenRepo{}
	RegisterSyncSeenTask(srv, repo, zerolog.Nop())
	h := srv.handlers[SyncSeenTaskType]

	// Malformed JSON and incomplete payloads must not error (no retry) and
	// must not touch the store.
	if err := h(context.Background(), qport.Task{Payload: []byte("{nope")}); err != nil {
		t.Errorf("malformed payload: %v", err)
	}
	empty, _ := json.Marshal(SyncSeenTaskPayload{ConversationID: "conv-1"})
	if err := h(context.Background(), qport.Task{Payload: empty}); err != nil {
		t.Errorf("incomplete payload: %v", err)
	}
	if len(repo.calls) != 0 {
		t.Errorf("store touched %d times for bad payloads", len(repo.calls))
	}
}
