package http

import (
	"github.com/gin-gonic/gin"

	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	queueport "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/port"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/realtime"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/presentation/controller"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

// RegisterRoutes registers messaging endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
// Cache and queue may be nil when Redis is not configured; the affected
// endpoints degrade gracefully (no caching, read-sync disabled).
func RegisterRoutes(g *gin.RouterGroup, repo repoport.Repository, cache cacheport.Cache, queue queueport.Client, hub *realtime.Hub) {
	listConvsCtl := controller.NewListConversationsController(repo, cache)
	getMsgsCtl := controller.NewGetMessagesController(repo)
	sendMsgCtl := controller.NewSendMessageController(repo, cache)
	markSeenCtl := controller.NewMarkSeenController(repo)
	socketCtl := controller.NewChatSocketController(repo, hub)

	// GET /api/v1/conversations -> caller's conversation list, newest first
	g.GET("/conversations", listConvsCtl.Handle())

	// GET /api/v1/messages?conversationId=<id> -> ordered history
	g.GET("/messages", getMsgsCtl.Handle())

	// POST /api/v1/messages -> persist a message (broadcast is the client's
	// follow-up on the websocket)
	g.POST("/messages", sendMsgCtl.Handle())

	// PUT /api/v1/messages/seen -> idempotent single-message acknowledgement
	g.PUT("/messages/seen", markSeenCtl.Handle())

	// PUT /api/v1/conversations/:id/read -> queue a read sync for the caller
	if queue != nil {
		syncSeenCtl := controller.NewSyncSeenController(repo, queue)
		g.PUT("/conversations/:id/read", syncSeenCtl.Handle())
	}

	// GET /api/v1/chat/ws -> realtime channel
	g.GET("/chat/ws", socketCtl.Handle())
}
