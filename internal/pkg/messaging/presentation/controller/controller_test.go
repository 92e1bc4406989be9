package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/RahidMalik/lms-chat/internal/infrastructure/realtime"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
)

// stubRepo satisfies the repository port with injectable lookups; methods a
// test does not expect to reach fail loudly.
type stubRepo struct {
	getConversation func(id string) (*domain.Conversation, error)
	getMessage      func(id string) (*domain.Message, error)
}

func (s *stubRepo) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	if s.getConversation == nil {
		panic("unexpected GetConversation")
	}
	return s.getConversation(id)
}

func (s *stubRepo) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	if s.getMessage == nil {
		panic("unexpected GetMessage")
	}
	return s.getMessage(id)
}

func (s *stubRepo) UpsertConversation(context.Context, domain.Conversation) (*domain.Conversation, error) {
	panic("unexpected UpsertConversation")
}
func (s *stubRepo) ListConversationsByUser(context.Context, string) ([]domain.Conversation, error) {
	panic("unexpected ListConversationsByUser")
}
func (s *stubRepo) AppendMessage(context.Context, domain.Message) error {
	panic("unexpected AppendMessage")
}
func (s *stubRepo) ListMessagesByConversation(context.Context, string) ([]domain.Message, error) {
	panic("unexpected ListMessagesByConversation")
}
func (s *stubRepo) MarkMessageSeen(context.Context, string) error { panic("unexpected MarkMessageSeen") }
func (s *stubRepo) MarkConversationSeen(context.Context, string, string) (int64, error) {
	panic("unexpected MarkConversationSeen")
}
func (s *stubRepo) Ping(context.Context) error  { return nil }
func (s *stubRepo) Close(context.Context) error { return nil }

func TestListConversationsUnauthenticatedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// No identity middleware: the resolved user id is empty and the use case
	// rejects with the unauthorized sentinel, which must map to 401.
	r.GET("/conversations", NewListConversationsController(&stubRepo{}, nil).Handle())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversations", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func dialSocket(t *testing.T, repo *stubRepo, userID string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)
	ctl := NewChatSocketController(repo, hub)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { c.Set("userID", userID) }, ctl.Handle())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame outboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func TestSocketRelayStoreFailure(t *testing.T) {
	conv := &domain.Conversation{ID: "conv-1", Participants: []string{"alice", "bob"}}
	repo := &stubRepo{
		getConversation: func(string) (*domain.Conversation, error) { return conv, nil },
		getMessage:      func(string) (*domain.Message, error) { return nil, errors.New("driver exploded") },
	}
	conn := dialSocket(t, repo, "alice")

	if frame := readFrame(t, conn); frame.Type != "connected" {
		t.Fatalf("first frame = %+v, want connected", frame)
	}

	if err := conn.WriteJSON(map[string]string{"type": "join", "conversationId": "conv-1"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "joined" {
		t.Fatalf("join reply = %+v", frame)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "message",
		"message": map[string]string{"id": "m1"},
	}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	frame := readFrame(t, conn)
	if frame.Type != "error" || frame.Code != "internal_error" {
		t.Errorf("frame = %+v, want internal_error", frame)
	}
	if strings.Contains(frame.Error, "driver exploded") {
		t.Error("raw store error leaked to the socket")
	}
}

func TestSocketRelayUnknownMessage(t *testing.T) {
	conv := &domain.Conversation{ID: "conv-1", Participants: []string{"alice", "bob"}}
	repo := &stubRepo{
		getConversation: func(string) (*domain.Conversation, error) { return conv, nil },
		getMessage:      func(string) (*domain.Message, error) { return nil, domain.ErrNotFound },
	}
	conn := dialSocket(t, repo, "alice")

	readFrame(t, conn) // connected
	_ = conn.WriteJSON(map[string]string{"type": "join", "conversationId": "conv-1"})
	readFrame(t, conn) // joined

	_ = conn.WriteJSON(map[string]any{"type": "message", "message": map[string]string{"id": "ghost"}})
	if frame := readFrame(t, conn); frame.Type != "error" || frame.Code != "not_found" {
		t.Errorf("frame = %+v, want not_found", frame)
	}
}
