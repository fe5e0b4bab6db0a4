package services

import (
	"context"
	"fmt"

	"github.com/lorrc/picture-collab/internal/core/domain"
	"github.com/lorrc/picture-collab/internal/core/ports"
)

// UserLookupService provides lightweight user details for display.
type UserLookupService struct {
	userRepo ports.UserRepository
}

var _ ports.UserLookupService = (*UserLookupService)(nil)

// NewUserLookupService creates a new UserLookupService.
func NewUserLookupService(userRepo ports.UserRepository) *UserLookupService {
	return &UserLookupService{
		userRepo: userRepo,
	}
}

// GetUser loads the full user record.
func (s *UserLookupService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user, nil
}

// Summarize returns the displayable record embedded in notifications.
func (s *UserLookupService) Summarize(ctx context.Context, userID int64) (domain.UserSummary, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.UserSummary{}, err
	}
	return user.Summary(), nil
}
