package repository

import (
	"context"
	"fmt"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

type GenreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

// List returns one page of genres, optionally searched by name.
func (r *GenreRepository) List(ctx context.Context, q ListQuery) (*Page[model.Genre], error) {
	tx := r.db.WithContext(ctx).Model(&model.Genre{})
	if s := q.normalized().Search; s != "" {
		tx = tx.Where(ilike("name"), like(s))
	}
	return paginate[model.Genre](tx, q, "id ASC")
}

// All returns every genre ordered by name.
func (r *GenreRepository) All(ctx context.Context) ([]model.Genre, error) {
	var genres []model.Genre
	err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error
	return genres, err
}

func (r *GenreRepository) FindByID(ctx context.Context, id uint) (*model.Genre, error) {
	var genre model.Genre
	if err := r.db.WithContext(ctx).First(&genre, id).Error; err != nil {
		return nil, translate(err)
	}
	return &genre, nil
}

func (r *GenreRepository) FindBySlug(ctx context.Context, slug string) (*model.Genre, error) {
	var genre model.Genre
	if err := r.db.WithContext(ctx).Where("url = ?", slug).First(&genre).Error; err != nil {
		return nil, translate(err)
	}
	return &genre, nil
}

// FindByIDs loads exactly the given genres or fails with ErrInvalidReference.
func (r *GenreRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Genre, error) {
	ids = uniqueIDs(ids)
	genres := []model.Genre{}
	if len(ids) == 0 {
		return genres, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&genres).Error; err != nil {
		return nil, err
	}
	if len(genres) != len(ids) {
		return nil, fmt.Errorf("%w: unknown genre id", ErrInvalidReference)
	}
	return genres, nil
}

func (r *GenreRepository) Create(ctx context.Context, genre *model.Genre) error {
	return translate(r.db.WithContext(ctx).Create(genre).Error)
}

func (r *GenreRepository) Update(ctx context.Context, genre *model.Genre) error {
	res := r.db.WithContext(ctx).Model(genre).
		Select("name", "description", "url").
		Updates(genre)
	return affected(res)
}

// Delete removes a genre and its movie associations; the movies stay.
func (r *GenreRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM movie_genres WHERE genre_id = ?", id).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&model.Genre{}, id))
	})
}

func (r *GenreRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Genre{}).Count(&count).Error
	return count, err
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
