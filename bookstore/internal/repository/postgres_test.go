package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/repository"
	"github.com/Astemirdum/bookstore-service/bookstore/migrations"
	"github.com/Astemirdum/bookstore-service/pkg/postgres"
)

// newPostgresRepo runs against a real database configured through the
// usual DB_* variables. Set BOOKSTORE_PG_TESTS=1 to enable.
func newPostgresRepo(t *testing.T) repository.Repository {
	t.Helper()
	if os.Getenv("BOOKSTORE_PG_TESTS") == "" {
		t.Skip("BOOKSTORE_PG_TESTS is not set")
	}
	var cfg postgres.DB
	require.NoError(t, envconfig.Process("", &cfg))

	ctx := context.Background()
	pool, err := postgres.NewPostgresDB(ctx, &cfg, migrations.MigrationFiles)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `truncate books, users`)
	require.NoError(t, err)

	repo, err := repository.NewRepository(pool, zap.NewNop())
	require.NoError(t, err)
	return repo
}

func TestPostgres_StoreInvariants(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	t.Run("admin stays admin after a plain login", func(t *testing.T) {
		user, err := repo.UpsertUser(ctx, model.LoginRequest{UID: "u1", Email: "ann@example.com", DisplayName: "Ann"}, true)
		require.NoError(t, err)
		require.Equal(t, model.RoleAdmin, user.Role)

		user, err = repo.UpsertUser(ctx, model.LoginRequest{UID: "u1"}, false)
		require.NoError(t, err)
		require.Equal(t, model.RoleAdmin, user.Role)
		require.Equal(t, "ann@example.com", user.Email, "empty fields keep the stored profile")
		require.Equal(t, "Ann", user.DisplayName)

		user, err = repo.UpsertUser(ctx, model.LoginRequest{UID: "u2"}, false)
		require.NoError(t, err)
		require.Equal(t, model.RoleUser, user.Role)
	})

	t.Run("stale version loses the swap", func(t *testing.T) {
		_, err := repo.CreateBook(ctx, model.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert"})
		require.NoError(t, err)

		state, err := repo.GetRatingState(ctx, "b1")
		require.NoError(t, err)

		ok, err := repo.SwapRating(ctx, "b1", state.Version, model.RatingState{Rating: 5, TotalRatings: 1})
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.SwapRating(ctx, "b1", state.Version, model.RatingState{Rating: 1, TotalRatings: 1})
		require.NoError(t, err)
		require.False(t, ok)

		got, err := repo.GetRatingState(ctx, "b1")
		require.NoError(t, err)
		require.Equal(t, model.RatingState{Rating: 5, TotalRatings: 1, Version: state.Version + 1}, got)
	})
}
