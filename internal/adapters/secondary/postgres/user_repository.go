package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
	"github.com/lorrc/picture-collab/internal/core/utils"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a live (not soft-deleted) user.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, user_account, user_name, user_avatar, user_profile, user_role, created_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var (
		user                  domain.User
		name, avatar, profile pgtype.Text
		role                  string
	)
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Account, &name, &avatar, &profile, &role, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}

	user.Name = utils.FromString(name)
	user.Avatar = utils.FromString(avatar)
	user.Profile = utils.FromString(profile)
	user.Role = domain.UserRole(role)
	return &user, nil
}
