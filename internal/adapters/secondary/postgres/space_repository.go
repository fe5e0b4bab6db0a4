package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
)

// SpaceRepository reads spaces.
type SpaceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SpaceRepository = (*SpaceRepository)(nil)

func NewSpaceRepository(pool *pgxpool.Pool) *SpaceRepository {
	return &SpaceRepository{pool: pool}
}

func (r *SpaceRepository) GetByID(ctx context.Context, id int64) (*domain.Space, error) {
	query := `
		SELECT id, space_name, space_type, user_id, created_at
		FROM spaces
		WHERE id = $1 AND deleted_at IS NULL
	`

	var (
		space     domain.Space
		spaceType int16
	)
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&space.ID, &space.Name, &spaceType, &space.OwnerID, &space.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSpaceNotFound
		}
		return nil, fmt.Errorf("query space %d: %w", id, err)
	}

	space.Type = domain.SpaceType(spaceType)
	return &space, nil
}

// SpaceMemberRepository reads team space memberships.
type SpaceMemberRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SpaceMemberRepository = (*SpaceMemberRepository)(nil)

func NewSpaceMemberRepository(pool *pgxpool.Pool) *SpaceMemberRepository {
	return &SpaceMemberRepository{pool: pool}
}

// GetRole returns the member role of a user, or ErrNotFound when the user is not a member.
func (r *SpaceMemberRepository) GetRole(ctx context.Context, spaceID, userID int64) (domain.SpaceRole, error) {
	query := `
		SELECT space_role
		FROM space_users
		WHERE space_id = $1 AND user_id = $2
	`

	var role string
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, spaceID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("space %d member %d: %w", spaceID, userID, apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("query space role: %w", err)
	}
	return domain.SpaceRole(role), nil
}
