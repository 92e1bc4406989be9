package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/identity"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/metrics"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/service"
)

// SendMessageController handles the send-message endpoint only (one
// controller per endpoint). It persists and returns the message; the
// realtime emission is the client's follow-up on the broadcast channel,
// keeping the durable write separate from the best-effort notify.
type SendMessageController struct {
	UC *service.SendMessageUseCase
}

func NewSendMessageController(repo repoport.Repository, cache cacheport.Cache) *SendMessageController {
	return &SendMessageController{UC: service.NewSendMessageUseCase(repo, cache)}
}

// sendMessageRequest is the DTO for the HTTP request body. The sender is
// always the authenticated caller.
type sendMessageRequest struct {
	ReceiverID     string `json:"receiverId" binding:"required"`
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, service.SendMessageInput{
			SenderID:       identity.MustUserID(c),
			ReceiverID:     req.ReceiverID,
			Text:           req.Text,
			ConversationID: req.ConversationID,
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		metrics.MessagesSent.Inc()
		c.JSON(http.StatusCreated, msg)
	}
}
