package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
)

// Gatekeeper admits websocket connections to a picture's editing session.
type Gatekeeper struct {
	identity    ports.IdentityResolver
	pictureRepo ports.PictureRepository
	spaceRepo   ports.SpaceRepository
	authzSvc    ports.AuthorizationService
	userLookup  ports.UserLookupService
	snapshot    ports.ReadSnapshot
}

// GatekeeperOption customizes a Gatekeeper.
type GatekeeperOption func(*Gatekeeper)

// WithReadSnapshot runs the user, picture, space and role lookups of one
// admission against a single consistent view of the store.
func WithReadSnapshot(snapshot ports.ReadSnapshot) GatekeeperOption {
	return func(g *Gatekeeper) {
		if snapshot != nil {
			g.snapshot = snapshot
		}
	}
}

// directReads runs lookups without a surrounding snapshot.
type directReads struct{}

func (directReads) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ ports.Gatekeeper = (*Gatekeeper)(nil)

// NewGatekeeper creates a new admission service.
func NewGatekeeper(
	identity ports.IdentityResolver,
	pictureRepo ports.PictureRepository,
	spaceRepo ports.SpaceRepository,
	authzSvc ports.AuthorizationService,
	userLookup ports.UserLookupService,
	opts ...GatekeeperOption,
) *Gatekeeper {
	g := &Gatekeeper{
		identity:    identity,
		pictureRepo: pictureRepo,
		spaceRepo:   spaceRepo,
		authzSvc:    authzSvc,
		userLookup:  userLookup,
		snapshot:    directReads{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit validates the proposed connection and returns the context attached to
// the new session. It creates no state, so a refused connection leaves nothing behind.
func (g *Gatekeeper) Admit(ctx context.Context, req ports.AdmissionRequest) (domain.SessionContext, error) {
	if req.PictureID <= 0 {
		return domain.SessionContext{}, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "resourceId is required")
	}

	// 1. Identity
	if req.Credential == "" {
		return domain.SessionContext{}, apperrors.ErrUnauthenticated
	}
	userID, err := g.identity.ResolveIdentity(req.Credential)
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}

	var sc domain.SessionContext
	err = g.snapshot.ReadOnly(ctx, func(ctx context.Context) error {
		var admitErr error
		sc, admitErr = g.admit(ctx, userID, req.PictureID)
		return admitErr
	})
	if err != nil {
		return domain.SessionContext{}, err
	}
	return sc, nil
}

func (g *Gatekeeper) admit(ctx context.Context, userID, pictureID int64) (domain.SessionContext, error) {
	user, err := g.userLookup.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.SessionContext{}, fmt.Errorf("%w: user %d no longer exists", apperrors.ErrUnauthenticated, userID)
		}
		return domain.SessionContext{}, err
	}

	// 2. Resource and scope
	picture, err := g.pictureRepo.GetByID(ctx, pictureID)
	if err != nil {
		return domain.SessionContext{}, err
	}

	// 3. Only team spaces support shared editing
	if picture.IsPublic() {
		return domain.SessionContext{}, fmt.Errorf("%w: picture %d is not in a space", apperrors.ErrForbidden, picture.ID)
	}
	space, err := g.spaceRepo.GetByID(ctx, picture.SpaceID)
	if err != nil {
		return domain.SessionContext{}, err
	}
	if !space.Type.SupportsCollaboration() {
		return domain.SessionContext{}, fmt.Errorf("%w: space %d is not a team space", apperrors.ErrForbidden, space.ID)
	}

	// 4. Edit capability
	capabilities, err := g.authzSvc.CapabilitiesFor(ctx, space, user)
	if err != nil {
		return domain.SessionContext{}, err
	}
	if !capabilities.Has(domain.PermPictureEdit) {
		return domain.SessionContext{}, fmt.Errorf("%w: missing %s", apperrors.ErrForbidden, domain.PermPictureEdit)
	}

	// 5. Displayable record carried by every notification of the session
	summary, err := g.userLookup.Summarize(ctx, user.ID)
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("summarize user %d: %w", user.ID, err)
	}

	return domain.SessionContext{
		UserID:    user.ID,
		PictureID: picture.ID,
		User:      summary,
	}, nil
}
