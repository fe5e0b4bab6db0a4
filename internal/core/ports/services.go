package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/picture-collab/internal/core/domain"
)

// IdentityResolver turns a connection credential into a user id.
type IdentityResolver interface {
	ResolveIdentity(credential string) (int64, error)
}

// AuthorizationService defines the port for evaluating capabilities inside a scope.
// A nil space stands for the public gallery.
type AuthorizationService interface {
	CapabilitiesFor(ctx context.Context, space *domain.Space, user *domain.User) (domain.CapabilitySet, error)
}

// UserLookupService provides displayable user records.
type UserLookupService interface {
	Summarize(ctx context.Context, userID int64) (domain.UserSummary, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

// ReadSnapshot runs a group of lookups against one consistent view of the store.
// The context handed to fn must be passed on to the repositories.
type ReadSnapshot interface {
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// AdmissionRequest is the proposed connection presented to the gatekeeper.
type AdmissionRequest struct {
	PictureID  int64
	Credential string
}

// Gatekeeper validates a connection before any session state is created.
type Gatekeeper interface {
	Admit(ctx context.Context, req AdmissionRequest) (domain.SessionContext, error)
}

// EventPublisher hands events to the ingress pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventProcessor executes one event. It is called by exactly one pipeline worker per event.
type EventProcessor interface {
	Process(ctx context.Context, event domain.Event) error
	ReportFailure(event domain.Event, err error)
}

// Broadcaster delivers a notification to the sessions editing a picture.
// A zero exclude id means no session is excluded.
type Broadcaster interface {
	Broadcast(pictureID int64, n domain.Notification, exclude uuid.UUID) int
	SendTo(pictureID int64, sessionID uuid.UUID, n domain.Notification) bool
}
