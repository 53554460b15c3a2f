package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
)

const catalogYAML = `
categories:
  - name: Feature films
    description: Full length
    url: films
  - name: Cartoons
genres:
  - {name: Crime, url: crime}
  - {name: Drama, url: drama}
actors:
  - {name: Al Pacino, age: 84}
  - {name: Robert De Niro, age: 81}
  - {name: Michael Mann, age: 81}
stars: [1, 2, 3, 4, 5]
movies:
  - title: Heat
    tagline: A Los Angeles crime saga
    year: 1995
    country: USA
    world_premiere: "1995-12-15"
    category: films
    genres: [crime, drama]
    actors: [Al Pacino, Robert De Niro]
    directors: [Michael Mann]
    url: heat
  - title: Thief
    year: 1981
    world_premiere: "1981-03-27"
    category: films
    genres: [crime]
    directors: [Michael Mann]
    url: thief
    draft: true
`

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.OpenSQLite("file:svc_"+name+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(context.Background(), db, nil))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewRepositories(db)
}

func loadCatalog(t *testing.T, repos *repository.Repositories) FixtureReport {
	t.Helper()
	report, err := NewFixtureLoader(repos.DB, nil).Load(context.Background(), strings.NewReader(catalogYAML))
	require.NoError(t, err)
	return report
}

func TestFixturesLoadIdempotently(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	first := loadCatalog(t, repos)
	assert.Equal(t, FixtureReport{Created: 2 + 2 + 3 + 5 + 2}, first)

	second := loadCatalog(t, repos)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2+2+3+2, second.Updated)

	cartoons, err := repos.Category.FindBySlug(ctx, "cartoons")
	require.NoError(t, err)
	assert.Equal(t, "Cartoons", cartoons.Name)

	heat, err := repos.Movie.FindBySlug(ctx, "heat", false)
	require.NoError(t, err)
	assert.Len(t, heat.Genres, 2)
	assert.Len(t, heat.Actors, 2)
	require.Len(t, heat.Directors, 1)
	assert.Equal(t, "Michael Mann", heat.Directors[0].Name)
	assert.Equal(t, "1995-12-15", heat.WorldPremiere.Format(time.DateOnly))

	n, err := repos.Movie.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestFixturesRejectUnknownReference(t *testing.T) {
	repos := newTestRepos(t)
	doc := `
movies:
  - {title: Heat, url: heat, category: nope}
`
	_, err := NewFixtureLoader(repos.DB, nil).Load(context.Background(), strings.NewReader(doc))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := repos.Movie.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCatalogHidesDrafts(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	catalog := NewCatalogService(repos, nil)
	ctx := context.Background()

	page, err := catalog.Movies(ctx, PublicFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "heat", page.Items[0].Slug)

	_, err = catalog.Movie(ctx, "thief")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mann, err := repos.Actor.FindByName(ctx, "Michael Mann")
	require.NoError(t, err)
	actor, err := catalog.Actor(ctx, mann.ID)
	require.NoError(t, err)
	assert.Empty(t, actor.ActedIn)
	require.Len(t, actor.Directed, 1)
	assert.Equal(t, "Heat", actor.Directed[0].Title)
}

func TestCatalogDetailCacheAndInvalidation(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	catalog := NewCatalogService(repos, nil)
	admin := NewAdminService(repos, catalog, nil)
	ctx := context.Background()

	detail, err := catalog.Movie(ctx, "heat")
	require.NoError(t, err)
	assert.Zero(t, detail.Rating.Count)

	again, err := catalog.Movie(ctx, "heat")
	require.NoError(t, err)
	assert.Same(t, detail, again)

	review, err := catalog.AddReview(ctx, "heat", ReviewInput{Email: "a@example.com", Name: "Ann", Text: "Great"})
	require.NoError(t, err)
	_, err = catalog.AddReview(ctx, "heat", ReviewInput{Email: "b@example.com", Name: "Bob", Text: "Agreed", ParentID: &review.ID})
	require.NoError(t, err)

	stars, err := catalog.Stars(ctx)
	require.NoError(t, err)
	require.Len(t, stars, 5)
	_, err = catalog.Rate(ctx, "heat", "192.0.2.1", stars[0].ID)
	require.NoError(t, err)

	detail, err = catalog.Movie(ctx, "heat")
	require.NoError(t, err)
	require.Len(t, detail.Reviews, 1)
	require.Len(t, detail.Reviews[0].Replies, 1)
	assert.Equal(t, "Bob", detail.Reviews[0].Replies[0].Name)
	assert.Equal(t, int64(1), detail.Rating.Count)
	assert.InDelta(t, 5.0, detail.Rating.Average, 0.001)

	heat, err := repos.Movie.FindBySlug(ctx, "heat", false)
	require.NoError(t, err)
	res, err := admin.RunAction(ctx, ActionUnpublish, []uint{heat.ID})
	require.NoError(t, err)
	assert.Equal(t, "1 record was updated", res.Message)

	_, err = catalog.Movie(ctx, "heat")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCatalogFillIgnoresCallerCancellation(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	catalog := NewCatalogService(repos, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	detail, err := catalog.Movie(ctx, "heat")
	require.NoError(t, err)
	assert.Equal(t, "Heat", detail.Movie.Title)

	genres, err := catalog.Genres(ctx)
	require.NoError(t, err)
	assert.Len(t, genres, 2)
}

func TestCatalogDropsFillRacingInvalidate(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	catalog := NewCatalogService(repos, nil)
	ctx := context.Background()

	var fills []string
	catalog.filled = func(key string) {
		fills = append(fills, key)
		if len(fills) == 1 {
			catalog.Invalidate()
		}
	}

	first, err := catalog.Movie(ctx, "heat")
	require.NoError(t, err)
	second, err := catalog.Movie(ctx, "heat")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	third, err := catalog.Movie(ctx, "heat")
	require.NoError(t, err)
	assert.Same(t, second, third)
	assert.Equal(t, []string{"heat", "heat"}, fills)
}

func TestCatalogListsAreCached(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	catalog := NewCatalogService(repos, nil)
	ctx := context.Background()

	genres, err := catalog.Genres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 2)

	require.NoError(t, repos.Genre.Create(ctx, &model.Genre{Name: "Western", Slug: "western"}))
	genres, err = catalog.Genres(ctx)
	require.NoError(t, err)
	assert.Len(t, genres, 2, "served from cache")

	catalog.Invalidate()
	genres, err = catalog.Genres(ctx)
	require.NoError(t, err)
	assert.Len(t, genres, 3)
}

func TestRunAction(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	admin := NewAdminService(repos, nil, nil)
	ctx := context.Background()

	page, err := repos.Movie.List(ctx, repository.MovieFilter{})
	require.NoError(t, err)
	ids := []uint{page.Items[0].ID, page.Items[1].ID}

	res, err := admin.RunAction(ctx, ActionPublish, ids)
	require.NoError(t, err)
	assert.Equal(t, ActionResult{Updated: 2, Message: "2 records were updated"}, res)

	drafts, err := repos.Movie.CountDrafts(ctx)
	require.NoError(t, err)
	assert.Zero(t, drafts)

	_, err = admin.RunAction(ctx, "delete_everything", ids)
	assert.ErrorIs(t, err, ErrUnknownAction)

	assert.Equal(t, "0 records were updated", UpdatedMessage(0))
}

func TestSaveMovieAsNew(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	admin := NewAdminService(repos, nil, nil)
	ctx := context.Background()

	heat, err := repos.Movie.FindBySlug(ctx, "heat", false)
	require.NoError(t, err)

	copyOf := *heat
	copyOf.Title = "Heat (director's cut)"
	copyOf.Slug = "heat-directors-cut"
	rel := repository.MovieRelations{CategoryID: heat.CategoryID, GenreIDs: []uint{heat.Genres[0].ID}}
	require.NoError(t, admin.SaveMovieAsNew(ctx, heat.ID, &copyOf, rel))
	assert.NotEqual(t, heat.ID, copyOf.ID)

	original, err := repos.Movie.FindByID(ctx, heat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heat", original.Title)
	assert.Len(t, original.Genres, 2)

	dup := *heat
	err = admin.SaveMovieAsNew(ctx, heat.ID, &dup, rel)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	stats, err := admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Movies)
	assert.Equal(t, int64(1), stats.Drafts)
	assert.Equal(t, int64(3), stats.Actors)
	assert.Equal(t, int64(5), stats.Stars)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestMediaStore(t *testing.T) {
	root := t.TempDir()
	store := NewMediaStore(root, "/media/")

	url, err := store.Save(strings.NewReader(string(pngHeader)), FolderMovies)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/movies/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	rel, ok := store.Rel(url)
	require.True(t, ok)
	_, err = os.Stat(filepath.Join(root, rel))
	assert.NoError(t, err)

	_, err = store.Save(strings.NewReader("just some text"), FolderMovies)
	assert.ErrorIs(t, err, ErrNotImage)

	_, ok = store.Rel("/media/../etc/passwd")
	assert.False(t, ok)
	_, ok = store.Rel("https://example.com/a.png")
	assert.False(t, ok)
}

func TestCleanupRemovesOrphanedMedia(t *testing.T) {
	repos := newTestRepos(t)
	loadCatalog(t, repos)
	ctx := context.Background()
	store := NewMediaStore(t.TempDir(), "/media")

	kept, err := store.Save(strings.NewReader(string(pngHeader)), FolderActors)
	require.NoError(t, err)
	orphan, err := store.Save(strings.NewReader(string(pngHeader)), FolderActors)
	require.NoError(t, err)

	pacino, err := repos.Actor.FindByName(ctx, "Al Pacino")
	require.NoError(t, err)
	pacino.Image = kept
	require.NoError(t, repos.Actor.Update(ctx, pacino))

	// files outside the upload folders are never swept
	old := time.Now().Add(-48 * time.Hour)
	foreign := []string{
		filepath.Join(store.Root(), "robots.txt"),
		filepath.Join(store.Root(), "static", "logo.png"),
	}
	for _, p := range foreign {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, pngHeader, 0o644))
		require.NoError(t, os.Chtimes(p, old, old))
	}

	cleanup := NewCleanupService(repos, store, nil)
	removed, err := cleanup.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "fresh uploads are inside the grace period")

	cleanup.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = cleanup.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	keptRel, _ := store.Rel(kept)
	orphanRel, _ := store.Rel(orphan)
	assert.FileExists(t, filepath.Join(store.Root(), keptRel))
	assert.NoFileExists(t, filepath.Join(store.Root(), orphanRel))
	for _, p := range foreign {
		assert.FileExists(t, p)
	}
}
