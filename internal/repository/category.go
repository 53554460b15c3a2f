package repository

import (
	"context"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

// CategoryRepository stores categories.
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a CategoryRepository.
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns one page of categories, optionally searched by name.
func (r *CategoryRepository) List(ctx context.Context, q ListQuery) (*Page[model.Category], error) {
	tx := r.db.WithContext(ctx).Model(&model.Category{})
	if s := q.normalized().Search; s != "" {
		tx = tx.Where(ilike("name"), like(s))
	}
	return paginate[model.Category](tx, q, "id ASC")
}

// All returns every category ordered by name.
func (r *CategoryRepository) All(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// FindByID loads one category.
func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// FindBySlug loads one category by its url slug.
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("url = ?", slug).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// Create inserts a category. A taken slug yields ErrDuplicate.
func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	return translate(r.db.WithContext(ctx).Create(category).Error)
}

// Update saves every column of category.
func (r *CategoryRepository) Update(ctx context.Context, category *model.Category) error {
	res := r.db.WithContext(ctx).Model(category).
		Select("name", "description", "url").
		Updates(category)
	return affected(res)
}

// Delete removes a category. Its movies stay and lose their category.
func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Movie{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error
		if err != nil {
			return err
		}
		return affected(tx.Delete(&model.Category{}, id))
	})
}

// Count returns the number of categories.
func (r *CategoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).Count(&count).Error
	return count, err
}
