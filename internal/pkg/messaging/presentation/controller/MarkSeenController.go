package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/service"
)

// MarkSeenController handles the mark-seen acknowledgement endpoint only
// (one controller per endpoint).
type MarkSeenController struct {
	UC *service.MarkSeenUseCase
}

func NewMarkSeenController(repo repoport.Repository) *MarkSeenController {
	return &MarkSeenController{UC: service.NewMarkSeenUseCase(repo)}
}

type markSeenRequest struct {
	MessageID string `json:"messageId" binding:"required"`
}

func (h *MarkSeenController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markSeenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := h.UC.Execute(ctx, req.MessageID); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"messageId": req.MessageID, "seen": true})
	}
}
