package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

// JoinConversationUseCase checks a user may enter a conversation's realtime
// room before the hub admits them.
type JoinConversationUseCase struct {
	Repo repoport.Repository
}

func NewJoinConversationUseCase(repo repoport.Repository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return domain.ErrBadID
	}
	conv, err := uc.Repo.GetConversation(ctx, conversationID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(userID) {
		return domain.ErrForbidden
	}
	return nil
}
