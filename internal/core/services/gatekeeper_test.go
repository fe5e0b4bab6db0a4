package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/mocks"
	"github.com/lorrc/picture-collab/internal/core/ports"
	"github.com/lorrc/picture-collab/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gatekeeperDeps struct {
	identity *mocks.MockIdentityResolver
	pictures *mocks.MockPictureRepository
	spaces   *mocks.MockSpaceRepository
	authz    *mocks.MockAuthorizationService
	users    *mocks.MockUserLookupService
}

func newGatekeeper() (*services.Gatekeeper, gatekeeperDeps) {
	deps := gatekeeperDeps{
		identity: mocks.NewMockIdentityResolver(),
		pictures: mocks.NewMockPictureRepository(),
		spaces:   mocks.NewMockSpaceRepository(),
		authz:    mocks.NewMockAuthorizationService(),
		users:    mocks.NewMockUserLookupService(),
	}
	gk := services.NewGatekeeper(deps.identity, deps.pictures, deps.spaces, deps.authz, deps.users)
	return gk, deps
}

func TestGatekeeper_Admit(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: 11, Name: "alice", Role: domain.UserRoleUser}
	picture := &domain.Picture{ID: 42, SpaceID: 5, OwnerID: 11}
	team := &domain.Space{ID: 5, Type: domain.SpaceTypeTeam, OwnerID: 3}
	req := ports.AdmissionRequest{PictureID: 42, Credential: "token"}

	t.Run("success", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(user, nil)
		deps.pictures.On("GetByID", ctx, int64(42)).Return(picture, nil)
		deps.spaces.On("GetByID", ctx, int64(5)).Return(team, nil)
		deps.authz.On("CapabilitiesFor", ctx, team, user).
			Return(domain.CapabilitySet{domain.PermPictureView, domain.PermPictureEdit}, nil)
		deps.users.On("Summarize", ctx, int64(11)).
			Return(domain.UserSummary{ID: 11, Name: "alice", Avatar: "https://cdn.example.com/alice.png"}, nil)

		sc, err := gk.Admit(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, int64(11), sc.UserID)
		assert.Equal(t, int64(42), sc.PictureID)
		assert.Equal(t, "alice", sc.User.Name)
		assert.Equal(t, "https://cdn.example.com/alice.png", sc.User.Avatar)
		deps.authz.AssertExpectations(t)
		deps.users.AssertExpectations(t)
	})

	t.Run("summary lookup fails", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(user, nil)
		deps.pictures.On("GetByID", ctx, int64(42)).Return(picture, nil)
		deps.spaces.On("GetByID", ctx, int64(5)).Return(team, nil)
		deps.authz.On("CapabilitiesFor", ctx, team, user).
			Return(domain.CapabilitySet{domain.PermPictureEdit}, nil)
		deps.users.On("Summarize", ctx, int64(11)).
			Return(domain.UserSummary{}, errors.New("connection reset"))

		_, err := gk.Admit(ctx, req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("missing resource id", func(t *testing.T) {
		gk, deps := newGatekeeper()

		_, err := gk.Admit(ctx, ports.AdmissionRequest{Credential: "token"})

		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		deps.identity.AssertNotCalled(t, "ResolveIdentity", mock.Anything)
	})

	t.Run("missing credential", func(t *testing.T) {
		gk, deps := newGatekeeper()

		_, err := gk.Admit(ctx, ports.AdmissionRequest{PictureID: 42})

		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		deps.pictures.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("invalid credential", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(0), errors.New("signature is invalid"))

		_, err := gk.Admit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		deps.pictures.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("deleted user", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(nil, apperrors.ErrUserNotFound)

		_, err := gk.Admit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("picture not found", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(user, nil)
		deps.pictures.On("GetByID", ctx, int64(42)).Return(nil, apperrors.ErrPictureNotFound)

		_, err := gk.Admit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("public picture", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(user, nil)
		deps.pictures.On("GetByID", ctx, int64(42)).Return(&domain.Picture{ID: 42}, nil)

		_, err := gk.Admit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		deps.spaces.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("space not found", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(user, nil)
		deps.pictures.On("GetByID", ctx, int64(42)).Return(picture, nil)
		deps.spaces.On("GetByID", ctx, int64(5)).Return(nil, apperrors.ErrSpaceNotFound)

		_, err := gk.Admit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("private space", func(t *testing.T) {
		gk, deps := newGatekeeper()
		private := &domain.Space{ID: 5, Type: domain.SpaceTypePrivate, OwnerID: 11}
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(user, nil)
		deps.pictures.On("GetByID", ctx, int64(42)).Return(picture, nil)
		deps.spaces.On("GetByID", ctx, int64(5)).Return(private, nil)

		_, err := gk.Admit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		deps.authz.AssertNotCalled(t, "CapabilitiesFor", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing edit capability", func(t *testing.T) {
		gk, deps := newGatekeeper()
		deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
		deps.users.On("GetUser", ctx, int64(11)).Return(user, nil)
		deps.pictures.On("GetByID", ctx, int64(42)).Return(picture, nil)
		deps.spaces.On("GetByID", ctx, int64(5)).Return(team, nil)
		deps.authz.On("CapabilitiesFor", ctx, team, user).
			Return(domain.CapabilitySet{domain.PermPictureView}, nil)

		_, err := gk.Admit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

type snapshotKey struct{}

// taggingSnapshot marks the context it hands to the lookups.
type taggingSnapshot struct {
	calls int
	err   error
}

func (s *taggingSnapshot) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return fn(context.WithValue(ctx, snapshotKey{}, true))
}

func TestGatekeeper_LookupsRunInsideSnapshot(t *testing.T) {
	snapshot := &taggingSnapshot{}
	deps := gatekeeperDeps{
		identity: mocks.NewMockIdentityResolver(),
		pictures: mocks.NewMockPictureRepository(),
		spaces:   mocks.NewMockSpaceRepository(),
		authz:    mocks.NewMockAuthorizationService(),
		users:    mocks.NewMockUserLookupService(),
	}
	gk := services.NewGatekeeper(deps.identity, deps.pictures, deps.spaces, deps.authz, deps.users,
		services.WithReadSnapshot(snapshot))

	inSnapshot := mock.MatchedBy(func(ctx context.Context) bool {
		tagged, _ := ctx.Value(snapshotKey{}).(bool)
		return tagged
	})
	user := &domain.User{ID: 11, Name: "alice"}
	team := &domain.Space{ID: 5, Type: domain.SpaceTypeTeam}

	deps.identity.On("ResolveIdentity", "token").Return(int64(11), nil)
	deps.users.On("GetUser", inSnapshot, int64(11)).Return(user, nil)
	deps.pictures.On("GetByID", inSnapshot, int64(42)).Return(&domain.Picture{ID: 42, SpaceID: 5}, nil)
	deps.spaces.On("GetByID", inSnapshot, int64(5)).Return(team, nil)
	deps.authz.On("CapabilitiesFor", inSnapshot, team, user).
		Return(domain.CapabilitySet{domain.PermPictureEdit}, nil)
	deps.users.On("Summarize", inSnapshot, int64(11)).Return(user.Summary(), nil)

	_, err := gk.Admit(context.Background(), ports.AdmissionRequest{PictureID: 42, Credential: "token"})
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.calls)
	deps.authz.AssertExpectations(t)
	deps.users.AssertExpectations(t)
}

func TestGatekeeper_SnapshotFailureRefuses(t *testing.T) {
	snapshot := &taggingSnapshot{err: errors.New("too many connections")}
	identity := mocks.NewMockIdentityResolver()
	identity.On("ResolveIdentity", "token").Return(int64(11), nil)
	users := mocks.NewMockUserLookupService()

	gk := services.NewGatekeeper(identity, mocks.NewMockPictureRepository(), mocks.NewMockSpaceRepository(),
		mocks.NewMockAuthorizationService(), users, services.WithReadSnapshot(snapshot))

	_, err := gk.Admit(context.Background(), ports.AdmissionRequest{PictureID: 42, Credential: "token"})
	require.Error(t, err)
	users.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}
