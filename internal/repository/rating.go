package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingStarRepository stores the selectable star values.
type RatingStarRepository struct {
	db *gorm.DB
}

func NewRatingStarRepository(db *gorm.DB) *RatingStarRepository {
	return &RatingStarRepository{db: db}
}

func (r *RatingStarRepository) List(ctx context.Context, q ListQuery) (*Page[model.RatingStar], error) {
	return paginate[model.RatingStar](r.db.WithContext(ctx).Model(&model.RatingStar{}), q, "value DESC, id ASC")
}

// All returns every star, highest value first.
func (r *RatingStarRepository) All(ctx context.Context) ([]model.RatingStar, error) {
	var stars []model.RatingStar
	err := r.db.WithContext(ctx).Order("value DESC, id ASC").Find(&stars).Error
	return stars, err
}

func (r *RatingStarRepository) FindByID(ctx context.Context, id uint) (*model.RatingStar, error) {
	var star model.RatingStar
	if err := r.db.WithContext(ctx).First(&star, id).Error; err != nil {
		return nil, translate(err)
	}
	return &star, nil
}

func (r *RatingStarRepository) FindByValue(ctx context.Context, value int16) (*model.RatingStar, error) {
	var star model.RatingStar
	if err := r.db.WithContext(ctx).Where("value = ?", value).First(&star).Error; err != nil {
		return nil, translate(err)
	}
	return &star, nil
}

func (r *RatingStarRepository) Create(ctx context.Context, star *model.RatingStar) error {
	return translate(r.db.WithContext(ctx).Create(star).Error)
}

func (r *RatingStarRepository) Update(ctx context.Context, star *model.RatingStar) error {
	return affected(r.db.WithContext(ctx).Model(star).Select("value").Updates(star))
}

// Delete removes a star and every rating that used it.
func (r *RatingStarRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("star_id = ?", id).Delete(&model.Rating{}).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&model.RatingStar{}, id))
	})
}

func (r *RatingStarRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RatingStar{}).Count(&count).Error
	return count, err
}

// RatingFilter narrows rating lists; Search matches the IP.
type RatingFilter struct {
	ListQuery
	MovieID uint
	StarID  uint
}

// RatingSummary aggregates the ratings of one movie.
type RatingSummary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) List(ctx context.Context, f RatingFilter) (*Page[model.Rating], error) {
	tx := r.db.WithContext(ctx).Model(&model.Rating{})
	if f.MovieID != 0 {
		tx = tx.Where("movie_id = ?", f.MovieID)
	}
	if f.StarID != 0 {
		tx = tx.Where("star_id = ?", f.StarID)
	}
	if s := f.normalized().Search; s != "" {
		tx = tx.Where(ilike("ip"), like(s))
	}
	return paginate[model.Rating](tx, f.ListQuery, "id ASC", func(db *gorm.DB) *gorm.DB {
		return db.Preload("Movie").Preload("Star")
	})
}

func (r *RatingRepository) FindByID(ctx context.Context, id uint) (*model.Rating, error) {
	var rating model.Rating
	if err := r.db.WithContext(ctx).Preload("Movie").Preload("Star").First(&rating, id).Error; err != nil {
		return nil, translate(err)
	}
	return &rating, nil
}

func (r *RatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	if err := r.checkRefs(ctx, rating); err != nil {
		return err
	}
	rating.Movie, rating.Star = nil, nil
	return translate(r.db.WithContext(ctx).Create(rating).Error)
}

func (r *RatingRepository) Update(ctx context.Context, rating *model.Rating) error {
	if err := r.checkRefs(ctx, rating); err != nil {
		return err
	}
	rating.Movie, rating.Star = nil, nil
	res := r.db.WithContext(ctx).Model(rating).
		Select("ip", "star_id", "movie_id").
		Updates(rating)
	return affected(res)
}

func (r *RatingRepository) Delete(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&model.Rating{}, id))
}

// Rate stores the star a viewer gave a movie, replacing an earlier one from the same IP.
func (r *RatingRepository) Rate(ctx context.Context, movieID uint, ip string, starID uint) (*model.Rating, error) {
	rating := &model.Rating{MovieID: movieID, IP: ip, StarID: starID}
	if err := r.checkRefs(ctx, rating); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "movie_id"}, {Name: "ip"}},
		DoUpdates: clause.AssignmentColumns([]string{"star_id"}),
	}).Create(rating).Error
	if err != nil {
		return nil, translate(err)
	}

	// the conflict path does not report the existing id everywhere
	var stored model.Rating
	err = r.db.WithContext(ctx).
		Where("movie_id = ? AND ip = ?", movieID, ip).
		Preload("Star").
		First(&stored).Error
	if err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

// Summary returns the number of ratings and the average star value of a movie.
func (r *RatingRepository) Summary(ctx context.Context, movieID uint) (RatingSummary, error) {
	var row struct {
		Count   int64
		Average *float64
	}
	err := r.db.WithContext(ctx).Model(&model.Rating{}).
		Select("COUNT(ratings.id) AS count, AVG(rating_stars.value) AS average").
		Joins("JOIN rating_stars ON rating_stars.id = ratings.star_id").
		Where("ratings.movie_id = ?", movieID).
		Scan(&row).Error
	if err != nil {
		return RatingSummary{}, err
	}

	summary := RatingSummary{Count: row.Count}
	if row.Average != nil {
		summary.Average = *row.Average
	}
	return summary, nil
}

func (r *RatingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Rating{}).Count(&count).Error
	return count, err
}

func (r *RatingRepository) checkRefs(ctx context.Context, rating *model.Rating) error {
	if err := checkMovie(ctx, r.db, rating.MovieID); err != nil {
		return err
	}
	var star model.RatingStar
	err := r.db.WithContext(ctx).First(&star, rating.StarID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: unknown star id %d", ErrInvalidReference, rating.StarID)
	}
	return err
}
