package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RahidMalik/lms-chat/internal/infrastructure/identity"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/service"
)

// GetMessagesController handles the message-history endpoint only
// (one controller per endpoint).
type GetMessagesController struct {
	UC *service.ListMessagesUseCase
}

func NewGetMessagesController(repo repoport.Repository) *GetMessagesController {
	return &GetMessagesController{UC: service.NewListMessagesUseCase(repo)}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Query("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, identity.MustUserID(c), conversationID)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
	}
}

// statusFor maps domain sentinels to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPersistence):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
