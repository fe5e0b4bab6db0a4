package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/mocks"
	"github.com/lorrc/picture-collab/internal/core/services"
)

func TestUserLookupService_Summarize(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to account when name is empty", func(t *testing.T) {
		repo := mocks.NewMockUserRepository()
		repo.On("GetByID", mock.Anything, int64(5)).
			Return(&domain.User{ID: 5, Account: "bob@example.com", Role: domain.UserRoleUser}, nil)

		summary, err := services.NewUserLookupService(repo).Summarize(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), summary.ID)
		assert.Equal(t, "bob@example.com", summary.Name)
		assert.Equal(t, domain.UserRoleUser, summary.Role)
		repo.AssertExpectations(t)
	})

	t.Run("keeps not found detectable", func(t *testing.T) {
		repo := mocks.NewMockUserRepository()
		repo.On("GetByID", mock.Anything, int64(9)).Return(nil, apperrors.ErrUserNotFound)

		_, err := services.NewUserLookupService(repo).GetUser(ctx, 9)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})
}
