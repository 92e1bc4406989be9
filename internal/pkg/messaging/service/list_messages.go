package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

// ListMessagesUseCase returns a conversation's full ordered log, oldest
// first, after checking the caller belongs to it.
type ListMessagesUseCase struct {
	Repo repoport.Repository
}

func NewListMessagesUseCase(repo repoport.Repository) *ListMessagesUseCase {
	return &ListMessagesUseCase{Repo: repo}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, callerID, conversationID string) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, domain.ErrBadID
	}

	conv, err := uc.Repo.GetConversation(ctx, conversationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(callerID) {
		return nil, domain.ErrForbidden
	}

	msgs, err := uc.Repo.ListMessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
