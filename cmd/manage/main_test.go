package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "movies.db"),
	}
}

func openRepos(t *testing.T, cfg *config.Config) *repository.Repositories {
	t.Helper()
	db, err := repository.InitDB(cfg, hclog.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewRepositories(db)
}

func TestRunUsage(t *testing.T) {
	cfg := testConfig(t)
	log := hclog.NewNullLogger()
	ctx := context.Background()

	assert.ErrorIs(t, run(ctx, cfg, log, nil), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, log, []string{"flush"}), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, log, []string{"createadmin", "-username", "ann"}), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, log, []string{"createadmin", "-username", "ann", "-password", "x", "-role", "root"}), errUsage)
	assert.ErrorIs(t, run(ctx, cfg, log, []string{"loaddata"}), errUsage)
}

func TestRunUnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "mysql"
	err := run(context.Background(), cfg, hclog.NewNullLogger(), []string{"migrate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestCreateAdmin(t *testing.T) {
	cfg := testConfig(t)
	log := hclog.NewNullLogger()
	ctx := context.Background()

	require.NoError(t, run(ctx, cfg, log, []string{"createadmin", "-username", "ann", "-password", "s3cret"}))
	require.NoError(t, run(ctx, cfg, log, []string{"createadmin", "-username", "bob", "-password", "s3cret", "-role", model.RoleStaff}))

	err := run(ctx, cfg, log, []string{"createadmin", "-username", "ann", "-password", "other"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	repos := openRepos(t, cfg)
	ann, err := repos.User.FindByUsername(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, ann.Role)
	assert.True(t, repos.User.CheckPassword(ann, "s3cret"))

	bob, err := repos.User.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, bob.Role)
}

func TestLoadData(t *testing.T) {
	cfg := testConfig(t)
	log := hclog.NewNullLogger()
	ctx := context.Background()
	file := filepath.Join("..", "..", "fixtures", "catalog.yaml")

	require.NoError(t, run(ctx, cfg, log, []string{"loaddata", "-file", file}))
	require.NoError(t, run(ctx, cfg, log, []string{"loaddata", "-file", file}))

	repos := openRepos(t, cfg)
	movies, err := repos.Movie.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), movies)

	drafts, err := repos.Movie.CountDrafts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), drafts)

	heat, err := repos.Movie.FindBySlug(ctx, "heat", true)
	require.NoError(t, err)
	assert.Len(t, heat.Genres, 3)
	assert.Len(t, heat.Actors, 3)
	require.Len(t, heat.Directors, 1)
	assert.Equal(t, "Michael Mann", heat.Directors[0].Name)
	assert.Equal(t, "Director, writer and producer", heat.Directors[0].Description)

	err = run(ctx, cfg, log, []string{"loaddata", "-file", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
