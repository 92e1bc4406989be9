package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	repoport "github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

// MarkSeenUseCase flips a message's seen flag to true. Idempotent: a second
// call on the same id is a successful no-op.
type MarkSeenUseCase struct {
	Repo repoport.Repository
}

func NewMarkSeenUseCase(repo repoport.Repository) *MarkSeenUseCase {
	return &MarkSeenUseCase{Repo: repo}
}

func (uc *MarkSeenUseCase) Execute(ctx context.Context, messageID string) error {
	if messageID == "" {
		return domain.ErrBadID
	}
	err := uc.Repo.MarkMessageSeen(ctx, messageID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
