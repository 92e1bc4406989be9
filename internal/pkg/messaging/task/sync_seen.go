package task

import (
	"context"
	"encoding/json"
	"time"

	qport "github.com/RahidMalik/lms-chat/internal/infrastructure/queue/port"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/rs/zerolog"
)

// SyncSeenTaskType is the queue task name for flushing a conversation's
// unread flags after a user opens it.
const SyncSeenTaskType = "chat:sync_seen"

// SyncSeenTaskPayload is the JSON payload transported via the queue.
type SyncSeenTaskPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// RegisterSyncSeenTask binds the task handler to the provided server. The
// handler marks every message addressed to the user in the conversation as
// seen; it is idempotent, so retries are harmless.
func RegisterSyncSeenTask(srv qport.Server, repo repoport.Repository, logger zerolog.Logger) {
	srv.Register(SyncSeenTaskType, func(ctx context.Context, t qport.Task) error {
		var p SyncSeenTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// Malformed payloads will never unmarshal on retry either.
			logger.Error().Err(err).Msg("sync_seen: bad payload")
			return nil
		}
		if p.ConversationID == "" || p.UserID == "" {
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		n, err := repo.MarkConversationSeen(ctx, p.ConversationID, p.UserID)
		if err != nil {
			return err
		}
		logger.Debug().
			Str("conversation_id", p.ConversationID).
			Str("user_id", p.UserID).
			Int64("marked", n).
			Msg("sync_seen: done")
		return nil
	})
}
