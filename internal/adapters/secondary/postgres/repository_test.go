package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
)

// insertUser creates a user with a unique account and returns its id.
func insertUser(t *testing.T, ctx context.Context, db DBTX, name string, role domain.UserRole) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO users (user_account, user_name, user_role) VALUES ($1, NULLIF($2, ''), $3) RETURNING id`,
		uuid.NewString(), name, string(role),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertSpace(t *testing.T, ctx context.Context, db DBTX, ownerID int64, spaceType domain.SpaceType) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO spaces (space_name, space_type, user_id) VALUES ('space', $1, $2) RETURNING id`,
		int16(spaceType), ownerID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertPicture(t *testing.T, ctx context.Context, db DBTX, ownerID, spaceID int64) int64 {
	t.Helper()
	var id int64
	var space any
	if spaceID > 0 {
		space = spaceID
	}
	err := db.QueryRow(ctx,
		`INSERT INTO pictures (name, space_id, user_id) VALUES ('pic', $1, $2) RETURNING id`,
		space, ownerID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	id := insertUser(t, ctx, testPool, "Alice", domain.UserRoleAdmin)

	user, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, domain.UserRoleAdmin, user.Role)
	assert.True(t, user.IsAdmin())
	assert.Empty(t, user.Avatar)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	_, err := repo.GetByID(ctx, 987654321)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_GetByID_SoftDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	id := insertUser(t, ctx, testPool, "Gone", domain.UserRoleUser)
	_, err := testPool.Exec(ctx, `UPDATE users SET deleted_at = NOW() WHERE id = $1`, id)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestPictureRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewPictureRepository(testPool)

	owner := insertUser(t, ctx, testPool, "Owner", domain.UserRoleUser)
	space := insertSpace(t, ctx, testPool, owner, domain.SpaceTypeTeam)
	inSpace := insertPicture(t, ctx, testPool, owner, space)
	public := insertPicture(t, ctx, testPool, owner, 0)

	picture, err := repo.GetByID(ctx, inSpace)
	require.NoError(t, err)
	assert.Equal(t, space, picture.SpaceID)
	assert.Equal(t, owner, picture.OwnerID)
	assert.False(t, picture.IsPublic())

	picture, err = repo.GetByID(ctx, public)
	require.NoError(t, err)
	assert.Zero(t, picture.SpaceID)
	assert.True(t, picture.IsPublic())

	_, err = repo.GetByID(ctx, 987654321)
	assert.ErrorIs(t, err, apperrors.ErrPictureNotFound)
}

func TestSpaceRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewSpaceRepository(testPool)

	owner := insertUser(t, ctx, testPool, "Owner", domain.UserRoleUser)
	team := insertSpace(t, ctx, testPool, owner, domain.SpaceTypeTeam)
	private := insertSpace(t, ctx, testPool, owner, domain.SpaceTypePrivate)

	space, err := repo.GetByID(ctx, team)
	require.NoError(t, err)
	assert.Equal(t, domain.SpaceTypeTeam, space.Type)
	assert.True(t, space.IsOwnedBy(owner))

	space, err = repo.GetByID(ctx, private)
	require.NoError(t, err)
	assert.Equal(t, domain.SpaceTypePrivate, space.Type)

	_, err = repo.GetByID(ctx, 987654321)
	assert.ErrorIs(t, err, apperrors.ErrSpaceNotFound)
}

func TestSpaceMemberRepository_GetRole(t *testing.T) {
	ctx := context.Background()
	repo := NewSpaceMemberRepository(testPool)

	owner := insertUser(t, ctx, testPool, "Owner", domain.UserRoleUser)
	member := insertUser(t, ctx, testPool, "Member", domain.UserRoleUser)
	outsider := insertUser(t, ctx, testPool, "Outsider", domain.UserRoleUser)
	space := insertSpace(t, ctx, testPool, owner, domain.SpaceTypeTeam)

	_, err := testPool.Exec(ctx,
		`INSERT INTO space_users (space_id, user_id, space_role) VALUES ($1, $2, 'editor')`, space, member)
	require.NoError(t, err)

	role, err := repo.GetRole(ctx, space, member)
	require.NoError(t, err)
	assert.Equal(t, domain.SpaceRoleEditor, role)

	_, err = repo.GetRole(ctx, space, outsider)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSnapshotter_ReadsThroughTransaction(t *testing.T) {
	ctx := context.Background()
	snapshot := NewSnapshotter(testPool)
	users := NewUserRepository(testPool)
	members := NewSpaceMemberRepository(testPool)

	owner := insertUser(t, ctx, testPool, "Owner", domain.UserRoleUser)
	editor := insertUser(t, ctx, testPool, "Editor", domain.UserRoleUser)
	space := insertSpace(t, ctx, testPool, owner, domain.SpaceTypeTeam)
	_, err := testPool.Exec(ctx,
		`INSERT INTO space_users (space_id, user_id, space_role) VALUES ($1, $2, 'editor')`, space, editor)
	require.NoError(t, err)

	err = snapshot.ReadOnly(ctx, func(txCtx context.Context) error {
		_, ok := TxFromContext(txCtx)
		require.True(t, ok)

		user, err := users.GetByID(txCtx, editor)
		require.NoError(t, err)
		assert.Equal(t, "Editor", user.Name)

		// A concurrent role change is not visible inside the snapshot.
		_, err = testPool.Exec(ctx,
			`UPDATE space_users SET space_role = 'viewer' WHERE space_id = $1 AND user_id = $2`, space, editor)
		require.NoError(t, err)

		role, err := members.GetRole(txCtx, space, editor)
		require.NoError(t, err)
		assert.Equal(t, domain.SpaceRoleEditor, role)
		return nil
	})
	require.NoError(t, err)

	role, err := members.GetRole(ctx, space, editor)
	require.NoError(t, err)
	assert.Equal(t, domain.SpaceRoleViewer, role)
}

func TestSnapshotter_RejectsWrites(t *testing.T) {
	ctx := context.Background()

	err := NewSnapshotter(testPool).ReadOnly(ctx, func(txCtx context.Context) error {
		_, err := GetDBTX(txCtx, testPool).Exec(txCtx,
			`INSERT INTO users (user_account) VALUES ($1)`, uuid.NewString())
		return err
	})
	require.Error(t, err)
}

func TestSnapshotter_PropagatesCallbackError(t *testing.T) {
	errStop := errors.New("stop")

	err := NewSnapshotter(testPool).ReadOnly(context.Background(), func(context.Context) error {
		return errStop
	})
	assert.ErrorIs(t, err, errStop)
}
