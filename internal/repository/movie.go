package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Credit roles of an actor on a movie.
const (
	RoleActor    = "actor"
	RoleDirector = "director"
)

var movieColumns = []string{
	"title", "tagline", "description", "poster", "year", "country",
	"world_premiere", "budget", "fees_in_usa", "fees_in_world",
	"category_id", "url", "draft",
}

// MovieFilter narrows movie lists. Zero values mean "no filter".
type MovieFilter struct {
	ListQuery
	CategoryID    *uint
	CategorySlug  string
	GenreSlug     string
	Year          uint16
	PublishedOnly bool
	// Newest orders by premiere date instead of id.
	Newest bool
}

// MovieRelations are the association ids written together with a movie.
type MovieRelations struct {
	CategoryID  *uint
	GenreIDs    []uint
	ActorIDs    []uint
	DirectorIDs []uint
}

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

func preloadCategory(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Category")
}

func preloadDetail(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		Preload("Actors", func(db *gorm.DB) *gorm.DB { return db.Order("actors.name ASC") }).
		Preload("Directors", func(db *gorm.DB) *gorm.DB { return db.Order("actors.name ASC") }).
		Preload("Shots", func(db *gorm.DB) *gorm.DB { return db.Order("movie_shots.id ASC") })
}

// List returns one page of movies. Search matches the title or the category name.
func (r *MovieRepository) List(ctx context.Context, f MovieFilter) (*Page[model.Movie], error) {
	q := f.ListQuery.normalized()

	tx := r.db.WithContext(ctx).Model(&model.Movie{}).
		Joins("LEFT JOIN categories ON categories.id = movies.category_id")

	if f.PublishedOnly {
		tx = tx.Where("movies.draft = ?", false)
	}
	if f.CategoryID != nil {
		tx = tx.Where("movies.category_id = ?", *f.CategoryID)
	}
	if f.CategorySlug != "" {
		tx = tx.Where("categories.url = ?", f.CategorySlug)
	}
	if f.Year != 0 {
		tx = tx.Where("movies.year = ?", f.Year)
	}
	if f.GenreSlug != "" {
		sub := r.db.Table("movie_genres").
			Select("movie_genres.movie_id").
			Joins("JOIN genres ON genres.id = movie_genres.genre_id").
			Where("genres.url = ?", f.GenreSlug)
		tx = tx.Where("movies.id IN (?)", sub)
	}
	if q.Search != "" {
		tx = tx.Where("("+ilike("movies.title")+" OR "+ilike("categories.name")+")", like(q.Search), like(q.Search))
	}

	order := "movies.id ASC"
	if f.Newest {
		order = "movies.world_premiere DESC, movies.id DESC"
	}
	return paginate[model.Movie](tx, q, order, preloadCategory)
}

// ListByActor returns the movies an actor is credited on in the given role.
func (r *MovieRepository) ListByActor(ctx context.Context, actorID uint, role string, publishedOnly bool) ([]model.Movie, error) {
	table := "movie_actors"
	if role == RoleDirector {
		table = "movie_directors"
	}

	tx := r.db.WithContext(ctx).
		Joins("JOIN "+table+" ON "+table+".movie_id = movies.id").
		Where(table+".actor_id = ?", actorID)
	if publishedOnly {
		tx = tx.Where("movies.draft = ?", false)
	}

	var movies []model.Movie
	err := tx.Order("movies.year DESC, movies.id DESC").Find(&movies).Error
	return movies, err
}

// FindByID loads a movie with category, genres, credits and shots.
func (r *MovieRepository) FindByID(ctx context.Context, id uint) (*model.Movie, error) {
	var movie model.Movie
	if err := preloadDetail(r.db.WithContext(ctx)).First(&movie, id).Error; err != nil {
		return nil, translate(err)
	}
	return &movie, nil
}

// FindBySlug loads a movie like FindByID. Drafts are ErrNotFound when publishedOnly is set.
func (r *MovieRepository) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (*model.Movie, error) {
	tx := preloadDetail(r.db.WithContext(ctx)).Where("url = ?", slug)
	if publishedOnly {
		tx = tx.Where("draft = ?", false)
	}

	var movie model.Movie
	if err := tx.First(&movie).Error; err != nil {
		return nil, translate(err)
	}
	return &movie, nil
}

// Create inserts movie and its associations in one transaction.
func (r *MovieRepository) Create(ctx context.Context, movie *model.Movie, rel MovieRelations) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links, err := loadRelations(tx, rel)
		if err != nil {
			return err
		}

		movie.CategoryID = rel.CategoryID
		movie.Category = nil
		if err := tx.Omit(clause.Associations).Create(movie).Error; err != nil {
			return translate(err)
		}
		return links.apply(tx, movie)
	})
}

// Update saves every column of movie and replaces its associations.
func (r *MovieRepository) Update(ctx context.Context, movie *model.Movie, rel MovieRelations) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links, err := loadRelations(tx, rel)
		if err != nil {
			return err
		}

		movie.CategoryID = rel.CategoryID
		movie.Category = nil
		res := tx.Model(movie).Select(movieColumns).Omit(clause.Associations).Updates(movie)
		if err := affected(res); err != nil {
			return err
		}
		return links.apply(tx, movie)
	})
}

// Delete removes a movie together with its shots, reviews and ratings.
// Actors and genres are kept; only the association rows go.
func (r *MovieRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var movie model.Movie
		if err := tx.First(&movie, id).Error; err != nil {
			return translate(err)
		}

		if err := tx.Model(&model.Review{}).Where("movie_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return err
		}
		for _, child := range []interface{}{&model.Review{}, &model.MovieShot{}, &model.Rating{}} {
			if err := tx.Where("movie_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		for _, assoc := range []string{"Actors", "Directors", "Genres"} {
			if err := tx.Model(&movie).Association(assoc).Clear(); err != nil {
				return err
			}
		}
		return affected(tx.Delete(&movie))
	})
}

// SetDraft sets the draft flag on the given movies and returns how many rows matched.
func (r *MovieRepository) SetDraft(ctx context.Context, ids []uint, draft bool) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Movie{}).
		Where("id IN ?", ids).
		Update("draft", draft)
	return res.RowsAffected, translate(res.Error)
}

// Years lists the distinct release years, newest first.
func (r *MovieRepository) Years(ctx context.Context) ([]uint16, error) {
	var years []uint16
	err := r.db.WithContext(ctx).Model(&model.Movie{}).
		Distinct("year").
		Order("year DESC").
		Pluck("year", &years).Error
	return years, err
}

func (r *MovieRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Movie{}).Count(&count).Error
	return count, err
}

// CountDrafts returns how many movies are unpublished.
func (r *MovieRepository) CountDrafts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Movie{}).Where("draft = ?", true).Count(&count).Error
	return count, err
}

type movieLinks struct {
	genres    []model.Genre
	actors    []model.Actor
	directors []model.Actor
}

func loadRelations(tx *gorm.DB, rel MovieRelations) (*movieLinks, error) {
	ctx := tx.Statement.Context

	if rel.CategoryID != nil {
		var category model.Category
		if err := tx.First(&category, *rel.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: unknown category id %d", ErrInvalidReference, *rel.CategoryID)
			}
			return nil, err
		}
	}

	genres, err := NewGenreRepository(tx).FindByIDs(ctx, rel.GenreIDs)
	if err != nil {
		return nil, err
	}
	actors, err := NewActorRepository(tx).FindByIDs(ctx, rel.ActorIDs)
	if err != nil {
		return nil, err
	}
	directors, err := NewActorRepository(tx).FindByIDs(ctx, rel.DirectorIDs)
	if err != nil {
		return nil, err
	}
	return &movieLinks{genres: genres, actors: actors, directors: directors}, nil
}

func (l *movieLinks) apply(tx *gorm.DB, movie *model.Movie) error {
	if err := tx.Model(movie).Association("Genres").Replace(l.genres); err != nil {
		return err
	}
	if err := tx.Model(movie).Association("Actors").Replace(l.actors); err != nil {
		return err
	}
	if err := tx.Model(movie).Association("Directors").Replace(l.directors); err != nil {
		return err
	}
	movie.Genres, movie.Actors, movie.Directors = l.genres, l.actors, l.directors
	return nil
}
