package ports

import (
	"context"

	"github.com/lorrc/picture-collab/internal/core/domain"
)

// PictureRepository resolves pictures from the relational store.
type PictureRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Picture, error)
}

// SpaceRepository resolves spaces (the scope of a picture).
type SpaceRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Space, error)
}

// SpaceMemberRepository looks up the role a user holds inside a team space.
// It returns apperrors.ErrNotFound when the user is not a member.
type SpaceMemberRepository interface {
	GetRole(ctx context.Context, spaceID, userID int64) (domain.SpaceRole, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
