package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/picture-collab/internal/core/domain"
	"github.com/lorrc/picture-collab/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockPictureRepository is a mock implementation of ports.PictureRepository
type MockPictureRepository struct {
	mock.Mock
}

func NewMockPictureRepository() *MockPictureRepository {
	return &MockPictureRepository{}
}

func (m *MockPictureRepository) GetByID(ctx context.Context, id int64) (*domain.Picture, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Picture), args.Error(1)
}

// MockSpaceRepository is a mock implementation of ports.SpaceRepository
type MockSpaceRepository struct {
	mock.Mock
}

func NewMockSpaceRepository() *MockSpaceRepository {
	return &MockSpaceRepository{}
}

func (m *MockSpaceRepository) GetByID(ctx context.Context, id int64) (*domain.Space, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Space), args.Error(1)
}

// MockSpaceMemberRepository is a mock implementation of ports.SpaceMemberRepository
type MockSpaceMemberRepository struct {
	mock.Mock
}

func NewMockSpaceMemberRepository() *MockSpaceMemberRepository {
	return &MockSpaceMemberRepository{}
}

func (m *MockSpaceMemberRepository) GetRole(ctx context.Context, spaceID, userID int64) (domain.SpaceRole, error) {
	args := m.Called(ctx, spaceID, userID)
	return args.Get(0).(domain.SpaceRole), args.Error(1)
}

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockIdentityResolver is a mock implementation of ports.IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

func NewMockIdentityResolver() *MockIdentityResolver {
	return &MockIdentityResolver{}
}

func (m *MockIdentityResolver) ResolveIdentity(credential string) (int64, error) {
	args := m.Called(credential)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuthorizationService is a mock implementation of ports.AuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) CapabilitiesFor(ctx context.Context, space *domain.Space, user *domain.User) (domain.CapabilitySet, error) {
	args := m.Called(ctx, space, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.CapabilitySet), args.Error(1)
}

// MockUserLookupService is a mock implementation of ports.UserLookupService
type MockUserLookupService struct {
	mock.Mock
}

func NewMockUserLookupService() *MockUserLookupService {
	return &MockUserLookupService{}
}

func (m *MockUserLookupService) Summarize(ctx context.Context, userID int64) (domain.UserSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserSummary), args.Error(1)
}

func (m *MockUserLookupService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockGatekeeper is a mock implementation of ports.Gatekeeper
type MockGatekeeper struct {
	mock.Mock
}

func NewMockGatekeeper() *MockGatekeeper {
	return &MockGatekeeper{}
}

func (m *MockGatekeeper) Admit(ctx context.Context, req ports.AdmissionRequest) (domain.SessionContext, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.SessionContext), args.Error(1)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockBroadcaster is a mock implementation of ports.Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Broadcast(pictureID int64, n domain.Notification, exclude uuid.UUID) int {
	args := m.Called(pictureID, n, exclude)
	return args.Int(0)
}

func (m *MockBroadcaster) SendTo(pictureID int64, sessionID uuid.UUID, n domain.Notification) bool {
	args := m.Called(pictureID, sessionID, n)
	return args.Bool(0)
}

var (
	_ ports.PictureRepository     = (*MockPictureRepository)(nil)
	_ ports.SpaceRepository       = (*MockSpaceRepository)(nil)
	_ ports.SpaceMemberRepository = (*MockSpaceMemberRepository)(nil)
	_ ports.UserRepository        = (*MockUserRepository)(nil)
	_ ports.IdentityResolver      = (*MockIdentityResolver)(nil)
	_ ports.AuthorizationService  = (*MockAuthorizationService)(nil)
	_ ports.UserLookupService     = (*MockUserLookupService)(nil)
	_ ports.Gatekeeper            = (*MockGatekeeper)(nil)
	_ ports.EventPublisher        = (*MockEventPublisher)(nil)
	_ ports.Broadcaster           = (*MockBroadcaster)(nil)
)
