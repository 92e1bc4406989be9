package v1

import (
	"github.com/gin-gonic/gin"

	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/identity"
	queueport "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/port"
	"github.com/RahidMalik/lms-chat/internal/infrastructure/realtime"
	httpHandler "github.com/RahidMalik/lms-chat/internal/pkg/messaging/presentation/http"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1. Every route
// sits behind the identity middleware: callers without a resolvable user id
// get 401 before any handler runs.
func RegisterRoutes(r *gin.Engine, jwtSecret string, repo repoport.Repository, cache cacheport.Cache, queue queueport.Client, hub *realtime.Hub) {
	v1 := r.Group("/api/v1")
	v1.Use(identity.Middleware(jwtSecret))
	httpHandler.RegisterRoutes(v1, repo, cache, queue, hub)
}
