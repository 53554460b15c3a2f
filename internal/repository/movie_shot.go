package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

// ShotFilter narrows shot lists.
type ShotFilter struct {
	ListQuery
	MovieID uint
}

type MovieShotRepository struct {
	db *gorm.DB
}

func NewMovieShotRepository(db *gorm.DB) *MovieShotRepository {
	return &MovieShotRepository{db: db}
}

func (r *MovieShotRepository) List(ctx context.Context, f ShotFilter) (*Page[model.MovieShot], error) {
	tx := r.db.WithContext(ctx).Model(&model.MovieShot{})
	if f.MovieID != 0 {
		tx = tx.Where("movie_id = ?", f.MovieID)
	}
	if s := f.normalized().Search; s != "" {
		tx = tx.Where(ilike("title"), like(s))
	}
	return paginate[model.MovieShot](tx, f.ListQuery, "id ASC", func(db *gorm.DB) *gorm.DB {
		return db.Preload("Movie")
	})
}

func (r *MovieShotRepository) FindByID(ctx context.Context, id uint) (*model.MovieShot, error) {
	var shot model.MovieShot
	if err := r.db.WithContext(ctx).Preload("Movie").First(&shot, id).Error; err != nil {
		return nil, translate(err)
	}
	return &shot, nil
}

func (r *MovieShotRepository) Create(ctx context.Context, shot *model.MovieShot) error {
	if err := checkMovie(ctx, r.db, shot.MovieID); err != nil {
		return err
	}
	shot.Movie = nil
	return translate(r.db.WithContext(ctx).Create(shot).Error)
}

func (r *MovieShotRepository) Update(ctx context.Context, shot *model.MovieShot) error {
	if err := checkMovie(ctx, r.db, shot.MovieID); err != nil {
		return err
	}
	shot.Movie = nil
	res := r.db.WithContext(ctx).Model(shot).
		Select("title", "description", "image", "movie_id").
		Updates(shot)
	return affected(res)
}

func (r *MovieShotRepository) Delete(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&model.MovieShot{}, id))
}

func (r *MovieShotRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.MovieShot{}).Count(&count).Error
	return count, err
}

// checkMovie fails with ErrInvalidReference unless the movie exists.
func checkMovie(ctx context.Context, db *gorm.DB, movieID uint) error {
	var movie model.Movie
	err := db.WithContext(ctx).Select("id").First(&movie, movieID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: unknown movie id %d", ErrInvalidReference, movieID)
	}
	return err
}
