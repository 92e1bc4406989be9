package port

import (
	"context"

	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
)

// Repository defines persistence operations for the messaging domain.
// Implementations must make UpsertConversation atomic under concurrent
// first-sends for the same pair (a single conditional upsert, never
// read-then-write), and should keep AppendMessage's message write and
// conversation preview update as close to one logical operation as the
// backend allows.
type Repository interface {
	// UpsertConversation finds the conversation for c.PairKey or creates it,
	// returning the stored record either way.
	UpsertConversation(ctx context.Context, c domain.Conversation) (*domain.Conversation, error)

	// GetConversation returns domain.ErrNotFound when the id is unknown.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// ListConversationsByUser returns conversations containing userID,
	// most recently updated first.
	ListConversationsByUser(ctx context.Context, userID string) ([]domain.Conversation, error)

	// AppendMessage persists the message and bumps the owning conversation's
	// lastMessage preview and updatedAt.
	AppendMessage(ctx context.Context, m domain.Message) error

	// ListMessagesByConversation returns the full ordered log, oldest first.
	ListMessagesByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)

	// GetMessage returns domain.ErrNotFound when the id is unknown.
	GetMessage(ctx context.Context, id string) (*domain.Message, error)

	// MarkMessageSeen sets seen=true. Idempotent; returns domain.ErrNotFound
	// when the id is unknown.
	MarkMessageSeen(ctx context.Context, id string) error

	// MarkConversationSeen flags every message addressed to userID in the
	// conversation as seen. Idempotent.
	MarkConversationSeen(ctx context.Context, conversationID, userID string) (int64, error)

	// Ping verifies connectivity with the backing store.
	Ping(ctx context.Context) error

	// Close releases held resources.
	Close(ctx context.Context) error
}
