package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azha0089/HealthyLife/internal/domain"
	"github.com/azha0089/HealthyLife/pkg/database"
	apperrors "github.com/azha0089/HealthyLife/pkg/errors"
)

var favoriteColumnNames = []string{"id", "user_id", "recipe_id", "created_at"}

func setupFavoriteRepo(t *testing.T) (*FavoriteRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := newMock(t)
	return NewFavoriteRepository(mock), mock
}

func TestFavoriteRepository_FindByAliases_LegacyRow(t *testing.T) {
	repo, mock := setupFavoriteRepo(t)

	aliases := []string{"abc123", "12", "recipe_12"}
	mock.ExpectQuery("SELECT .+ FROM favorites\\s+WHERE user_id = \\$1 AND recipe_id = ANY").
		WithArgs("u1", aliases).
		WillReturnRows(pgxmock.NewRows(favoriteColumnNames).AddRow("f1", "u1", "recipe_12", fixedTime))

	f, err := repo.FindByAliases(context.Background(), "u1", aliases)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "recipe_12", f.RecipeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteRepository_FindByAliases_Miss(t *testing.T) {
	repo, mock := setupFavoriteRepo(t)

	mock.ExpectQuery("SELECT .+ FROM favorites").
		WithArgs("u1", []string{"abc123"}).
		WillReturnError(pgx.ErrNoRows)

	f, err := repo.FindByAliases(context.Background(), "u1", []string{"abc123"})
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteRepository_Create_Duplicate(t *testing.T) {
	repo, mock := setupFavoriteRepo(t)

	mock.ExpectExec("INSERT INTO favorites").
		WithArgs("f1", "u1", "abc123", fixedTime).
		WillReturnError(&pgconn.PgError{Code: database.CodeUniqueViolation})

	err := repo.Create(context.Background(), &domain.Favorite{ID: "f1", UserID: "u1", RecipeID: "abc123", CreatedAt: fixedTime})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteRepository_Delete_NotFound(t *testing.T) {
	repo, mock := setupFavoriteRepo(t)

	mock.ExpectExec("DELETE FROM favorites").WithArgs("f9").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "f9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteRepository_ListByUser(t *testing.T) {
	repo, mock := setupFavoriteRepo(t)

	mock.ExpectQuery("SELECT .+ FROM favorites\\s+WHERE user_id = \\$1\\s+ORDER BY created_at DESC").
		WithArgs("u1", 100).
		WillReturnRows(pgxmock.NewRows(favoriteColumnNames).
			AddRow("f2", "u1", "abc123", fixedTime).
			AddRow("f1", "u1", "7", fixedTime))

	favs, err := repo.ListByUser(context.Background(), "u1", 100)
	require.NoError(t, err)
	assert.Len(t, favs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
