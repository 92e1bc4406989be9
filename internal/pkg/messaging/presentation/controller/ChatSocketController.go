package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/RahidMalik/lms-chat/internal/infrastructure/identity"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/realtime"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/service"
)

// ChatSocketController owns the websocket endpoint. The channel is a relay
// only: persistence happens over the REST surface first, then the sender
// emits the stored message here and the hub fans it out to the other members
// of the conversation's room. Nothing is ever persisted or replayed from
// this path; absent peers catch up from the message history.
type ChatSocketController struct {
	hub             *realtime.Hub
	repo            repoport.Repository
	joinUC          *service.JoinConversationUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(repo repoport.Repository, hub *realtime.Hub) *ChatSocketController {
	return &ChatSocketController{
		hub:             hub,
		repo:            repo,
		joinUC:          service.NewJoinConversationUseCase(repo),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The token query parameter authenticates the dial; origin checks
		// belong to the LMS frontend's deployment config.
		return true
	},
}

type inboundFrame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversationId,omitempty"`
	Message        *domain.Message `json:"message,omitempty"`
}

type outboundFrame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversationId,omitempty"`
	Message        *domain.Message `json:"message,omitempty"`
	Code           string          `json:"code,omitempty"`
	Error          string          `json:"error,omitempty"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades the connection and processes frames until the client
// disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := identity.MustUserID(c)

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			return
		}

		sess := realtime.NewSession(userID, ws)
		ctl.hub.Attach(sess)
		defer func() {
			ctl.hub.Detach(sess)
			sess.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 16)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(sess, outboundFrame{Type: "connected"})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(sess, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "join":
				ctl.handleJoin(c, sess, frame)
			case "leave":
				ctl.handleLeave(sess)
			case "message":
				ctl.handleMessage(c, sess, frame)
			default:
				ctl.replyError(sess, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, sess *realtime.Session, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(sess, "bad_request", "conversationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	if err := ctl.joinUC.Execute(ctx, frame.ConversationID, sess.UserID); err != nil {
		ctl.handleUseCaseError(sess, err)
		return
	}

	ctl.hub.Join(frame.ConversationID, sess)
	ctl.reply(sess, outboundFrame{Type: "joined", ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleLeave(sess *realtime.Session) {
	ctl.hub.Leave(sess)
	ctl.reply(sess, outboundFrame{Type: "left"})
}

// handleMessage relays an already-persisted message to the other room
// members. The frame is trusted only after the stored copy confirms the
// emitter sent it and it belongs to the session's current room.
func (ctl *ChatSocketController) handleMessage(c *gin.Context, sess *realtime.Session, frame inboundFrame) {
	if frame.Message == nil || frame.Message.ID == "" {
		ctl.replyError(sess, "bad_request", "message with id is required")
		return
	}

	room, ok := ctl.hub.Room(sess)
	if !ok {
		ctl.replyError(sess, "not_joined", "join the conversation before emitting")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	stored, err := ctl.repo.GetMessage(ctx, frame.Message.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("%w: %v", service.ErrPersistence, err)
		}
		ctl.handleUseCaseError(sess, err)
		return
	}
	if stored.SenderID != sess.UserID || stored.ConversationID != room {
		ctl.replyError(sess, "forbidden", "message does not belong to this room")
		return
	}

	out := outboundFrame{Type: "message", ConversationID: room, Message: stored}
	payload, err := json.Marshal(out)
	if err != nil {
		ctl.replyError(sess, "internal_error", "failed to encode message")
		return
	}

	ctl.hub.Broadcast(room, payload, sess)
}

func (ctl *ChatSocketController) handleUseCaseError(sess *realtime.Session, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		ctl.replyError(sess, "not_found", "conversation or message not found")
	case errors.Is(err, domain.ErrForbidden):
		ctl.replyError(sess, "forbidden", "user is not a participant in this conversation")
	case errors.Is(err, service.ErrPersistence):
		ctl.replyError(sess, "internal_error", "unexpected persistence error")
	default:
		ctl.replyError(sess, "bad_request", err.Error())
	}
}

func (ctl *ChatSocketController) reply(sess *realtime.Session, frame outboundFrame) {
	if payload, err := json.Marshal(frame); err == nil {
		_ = sess.Send(payload)
	}
}

func (ctl *ChatSocketController) replyError(sess *realtime.Session, code, message string) {
	ctl.reply(sess, outboundFrame{Type: "error", Code: code, Error: message})
}
