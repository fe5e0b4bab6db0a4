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

// PictureRepository reads pictures and their containing space.
type PictureRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PictureRepository = (*PictureRepository)(nil)

func NewPictureRepository(pool *pgxpool.Pool) *PictureRepository {
	return &PictureRepository{pool: pool}
}

// GetByID returns a live picture. SpaceID is 0 for pictures of the public gallery.
func (r *PictureRepository) GetByID(ctx context.Context, id int64) (*domain.Picture, error) {
	query := `
		SELECT id, name, space_id, user_id, created_at
		FROM pictures
		WHERE id = $1 AND deleted_at IS NULL
	`

	var (
		picture domain.Picture
		spaceID pgtype.Int8
	)
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&picture.ID, &picture.Name, &spaceID, &picture.OwnerID, &picture.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPictureNotFound
		}
		return nil, fmt.Errorf("query picture %d: %w", id, err)
	}

	picture.SpaceID = utils.FromInt8(spaceID)
	return &picture, nil
}
