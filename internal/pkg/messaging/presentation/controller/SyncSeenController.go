package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RahidMalik/lms-chat/internal/infrastructure/identity"
	queueport "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/port"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/service"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/task"
)

// SyncSeenController enqueues a background task that flags every message
// addressed to the caller in a conversation as seen. Used when a user opens
// a conversation; the per-message endpoint stays synchronous.
type SyncSeenController struct {
	Q      queueport.Client
	joinUC *service.JoinConversationUseCase
}

func NewSyncSeenController(repo repoport.Repository, client queueport.Client) *SyncSeenController {
	return &SyncSeenController{Q: client, joinUC: service.NewJoinConversationUseCase(repo)}
}

func (h *SyncSeenController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("id")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id is required"})
			return
		}
		userID := identity.MustUserID(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		// Membership gate before anything hits the queue.
		if err := h.joinUC.Execute(ctx, conversationID, userID); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		payload, err := json.Marshal(task.SyncSeenTaskPayload{
			ConversationID: conversationID,
			UserID:         userID,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode task payload"})
			return
		}

		opts := queueport.EnqueueOption{Queue: "messaging", MaxRetry: 10}
		id, err := h.Q.Enqueue(ctx, queueport.Task{Type: task.SyncSeenTaskType, Payload: payload}, opts)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue read sync"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":         "queued",
			"taskId":         id,
			"conversationId": conversationID,
		})
	}
}
