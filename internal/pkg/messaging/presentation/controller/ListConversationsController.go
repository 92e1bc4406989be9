package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/identity"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/service"
)

// ListConversationsController handles the conversation-list endpoint only
// (one controller per endpoint).
type ListConversationsController struct {
	UC *service.ListConversationsUseCase
}

func NewListConversationsController(repo repoport.Repository, cache cacheport.Cache) *ListConversationsController {
	return &ListConversationsController{UC: service.NewListConversationsUseCase(repo, cache)}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := identity.MustUserID(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		convs, err := h.UC.Execute(ctx, userID)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"conversations": convs, "count": len(convs)})
	}
}
