package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenSQLite("file:"+name+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db, nil))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	repos    *Repositories
	drama    *model.Category
	comedy   *model.Category
	thriller model.Genre
	crime    model.Genre
	actor    model.Actor
	director model.Actor
	stars    []model.RatingStar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	f := &fixture{
		repos:    repos,
		drama:    &model.Category{Name: "Drama", Slug: "drama"},
		comedy:   &model.Category{Name: "Comedy", Slug: "comedy"},
		thriller: model.Genre{Name: "Thriller", Slug: "thriller"},
		crime:    model.Genre{Name: "Crime", Slug: "crime"},
		actor:    model.Actor{Name: "Al Pacino", Age: 84},
		director: model.Actor{Name: "Francis Ford Coppola", Age: 85},
	}
	require.NoError(t, repos.Category.Create(ctx, f.drama))
	require.NoError(t, repos.Category.Create(ctx, f.comedy))
	require.NoError(t, repos.Genre.Create(ctx, &f.thriller))
	require.NoError(t, repos.Genre.Create(ctx, &f.crime))
	require.NoError(t, repos.Actor.Create(ctx, &f.actor))
	require.NoError(t, repos.Actor.Create(ctx, &f.director))

	for _, v := range []int16{1, 2, 3, 4, 5} {
		star := model.RatingStar{Value: v}
		require.NoError(t, repos.Star.Create(ctx, &star))
		f.stars = append(f.stars, star)
	}
	return f
}

// movie creates a movie in the drama category with both credits and both genres.
func (f *fixture) movie(t *testing.T, slug string, year uint16, draft bool) *model.Movie {
	t.Helper()
	m := &model.Movie{
		Title:         strings.ToUpper(slug[:1]) + slug[1:],
		Slug:          slug,
		Year:          year,
		Country:       "USA",
		WorldPremiere: time.Date(int(year), 3, 15, 0, 0, 0, 0, time.UTC),
		Draft:         draft,
	}
	err := f.repos.Movie.Create(context.Background(), m, MovieRelations{
		CategoryID:  &f.drama.ID,
		GenreIDs:    []uint{f.thriller.ID, f.crime.ID},
		ActorIDs:    []uint{f.actor.ID},
		DirectorIDs: []uint{f.director.ID},
	})
	require.NoError(t, err)
	return m
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}
