package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

// SendMessageInput carries the data needed to send a new message.
// ConversationID is optional: the first message between a pair creates the
// conversation implicitly.
type SendMessageInput struct {
	SenderID       string
	ReceiverID     string
	Text           string
	ConversationID string
}

// SendMessageUseCase persists a message, creating the pair's conversation on
// first contact. Broadcasting the persisted message over the realtime channel
// is the caller's job: persistence success is the authoritative outcome and
// the notify side is best-effort.
type SendMessageUseCase struct {
	Repo  repoport.Repository
	Cache cacheport.Cache // optional; invalidates conversation-list entries
}

func NewSendMessageUseCase(repo repoport.Repository, cache cacheport.Cache) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Cache: cache}
}

// Execute validates, resolves the conversation and appends the message,
// returning it with the server-assigned id and timestamp. Validation runs
// before any store access: a rejected send must not leave a freshly created
// conversation behind.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	now := time.Now().UTC()

	msg, err := domain.NewMessage(domain.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Text:       in.Text,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	conv, err := uc.resolveConversation(ctx, in, now)
	if err != nil {
		return nil, err
	}

	msg.ConversationID = conv.ID
	msg.ID = ulid.Make().String()

	if err := uc.Repo.AppendMessage(ctx, *msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.invalidate(ctx, conv.Participants)
	return msg, nil
}

func (uc *SendMessageUseCase) resolveConversation(ctx context.Context, in SendMessageInput, now time.Time) (*domain.Conversation, error) {
	if in.ConversationID == "" {
		// Atomic find-or-create: concurrent first-sends for the same pair
		// must converge on one conversation.
		conv, err := domain.NewConversation(in.SenderID, in.ReceiverID, now)
		if err != nil {
			return nil, err
		}
		stored, err := uc.Repo.UpsertConversation(ctx, *conv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return stored, nil
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(in.SenderID) || !conv.HasParticipant(in.ReceiverID) {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

func (uc *SendMessageUseCase) invalidate(ctx context.Context, participants []string) {
	if uc.Cache == nil {
		return
	}
	keys := make([]string, 0, len(participants))
	for _, p := range participants {
		keys = append(keys, conversationListKey(p))
	}
	// Best-effort: a stale preview is repaired by TTL expiry.
	_, _ = uc.Cache.Del(ctx, keys...)
}
