package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

// ReviewFilter narrows review lists; Search matches name or email.
type ReviewFilter struct {
	ListQuery
	MovieID uint
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) List(ctx context.Context, f ReviewFilter) (*Page[model.Review], error) {
	tx := r.db.WithContext(ctx).Model(&model.Review{})
	if f.MovieID != 0 {
		tx = tx.Where("movie_id = ?", f.MovieID)
	}
	if s := f.normalized().Search; s != "" {
		tx = tx.Where("("+ilike("name")+" OR "+ilike("email")+")", like(s), like(s))
	}
	return paginate[model.Review](tx, f.ListQuery, "id ASC", func(db *gorm.DB) *gorm.DB {
		return db.Preload("Movie").Preload("Parent")
	})
}

// ListByMovie returns every review of a movie in posting order.
func (r *ReviewRepository) ListByMovie(ctx context.Context, movieID uint) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).Where("movie_id = ?", movieID).Order("id ASC").Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) FindByID(ctx context.Context, id uint) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).Preload("Movie").Preload("Parent").First(&review, id).Error; err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

// Create inserts a review. A parent must exist and belong to the same movie.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	if err := checkMovie(ctx, r.db, review.MovieID); err != nil {
		return err
	}
	if err := r.checkParent(ctx, review); err != nil {
		return err
	}
	review.Movie, review.Parent = nil, nil
	return translate(r.db.WithContext(ctx).Create(review).Error)
}

// Update saves text and parent. Name and email are read-only once posted.
func (r *ReviewRepository) Update(ctx context.Context, review *model.Review) error {
	var current model.Review
	if err := r.db.WithContext(ctx).First(&current, review.ID).Error; err != nil {
		return translate(err)
	}
	review.MovieID = current.MovieID
	if err := r.checkParent(ctx, review); err != nil {
		return err
	}

	review.Movie, review.Parent = nil, nil
	res := r.db.WithContext(ctx).Model(review).
		Select("text", "parent_id").
		Updates(review)
	if err := affected(res); err != nil {
		return err
	}
	review.Name, review.Email, review.CreatedAt = current.Name, current.Email, current.CreatedAt
	return nil
}

// Delete removes a review. Direct replies survive with no parent.
func (r *ReviewRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Review{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&model.Review{}, id))
	})
}

func (r *ReviewRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Review{}).Count(&count).Error
	return count, err
}

func (r *ReviewRepository) checkParent(ctx context.Context, review *model.Review) error {
	if review.ParentID == nil {
		return nil
	}
	if review.ID != 0 && *review.ParentID == review.ID {
		return fmt.Errorf("%w: a review cannot reply to itself", ErrInvalidReference)
	}

	var parent model.Review
	err := r.db.WithContext(ctx).Select("id", "movie_id", "parent_id").First(&parent, *review.ParentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: unknown parent review %d", ErrInvalidReference, *review.ParentID)
	}
	if err != nil {
		return err
	}
	if parent.MovieID != review.MovieID {
		return fmt.Errorf("%w: parent review belongs to another movie", ErrInvalidReference)
	}
	if review.ID == 0 {
		return nil
	}

	// walk up from the new parent; meeting the review itself means a cycle
	next := parent.ParentID
	for next != nil {
		if *next == review.ID {
			return fmt.Errorf("%w: reply chain would loop", ErrInvalidReference)
		}
		var ancestor model.Review
		if err := r.db.WithContext(ctx).Select("id", "parent_id").First(&ancestor, *next).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		next = ancestor.ParentID
	}
	return nil
}

// Thread arranges reviews into top-level reviews with nested replies.
// Replies whose parent is missing from the slice are promoted to the top.
func Thread(reviews []model.Review) []*model.Review {
	nodes := make(map[uint]*model.Review, len(reviews))
	for i := range reviews {
		rv := reviews[i]
		rv.Replies = nil
		nodes[rv.ID] = &rv
	}

	roots := make([]*model.Review, 0)
	for i := range reviews {
		node := nodes[reviews[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
