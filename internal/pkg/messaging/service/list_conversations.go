package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

const conversationListTTL = 30 * time.Second

func conversationListKey(userID string) string {
	return "convs:" + userID
}

// ListConversationsUseCase returns the caller's conversations, most recently
// updated first. The sidebar polls this, so results are cached per user with
// a short TTL; SendMessage invalidates both participants' entries.
type ListConversationsUseCase struct {
	Repo  repoport.Repository
	Cache cacheport.Cache // optional
}

func NewListConversationsUseCase(repo repoport.Repository, cache cacheport.Cache) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Cache: cache}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	if uc.Cache != nil {
		if raw, err := uc.Cache.Get(ctx, conversationListKey(userID)); err == nil {
			var convs []domain.Conversation
			if json.Unmarshal([]byte(raw), &convs) == nil {
				return convs, nil
			}
		}
	}

	convs, err := uc.Repo.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Cache != nil {
		if raw, err := json.Marshal(convs); err == nil {
			_ = uc.Cache.Set(ctx, conversationListKey(userID), string(raw), conversationListTTL)
		}
	}
	return convs, nil
}
