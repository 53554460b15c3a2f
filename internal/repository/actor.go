package repository

import (
	"context"
	"fmt"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

// ActorRepository stores actors and directors.
type ActorRepository struct {
	db *gorm.DB
}

func NewActorRepository(db *gorm.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

// List returns one page of actors, optionally searched by name.
func (r *ActorRepository) List(ctx context.Context, q ListQuery) (*Page[model.Actor], error) {
	tx := r.db.WithContext(ctx).Model(&model.Actor{})
	if s := q.normalized().Search; s != "" {
		tx = tx.Where(ilike("name"), like(s))
	}
	return paginate[model.Actor](tx, q, "id ASC")
}

func (r *ActorRepository) FindByID(ctx context.Context, id uint) (*model.Actor, error) {
	var actor model.Actor
	if err := r.db.WithContext(ctx).First(&actor, id).Error; err != nil {
		return nil, translate(err)
	}
	return &actor, nil
}

// FindByIDs loads exactly the given actors or fails with ErrInvalidReference.
func (r *ActorRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Actor, error) {
	ids = uniqueIDs(ids)
	actors := []model.Actor{}
	if len(ids) == 0 {
		return actors, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&actors).Error; err != nil {
		return nil, err
	}
	if len(actors) != len(ids) {
		return nil, fmt.Errorf("%w: unknown actor id", ErrInvalidReference)
	}
	return actors, nil
}

func (r *ActorRepository) Create(ctx context.Context, actor *model.Actor) error {
	return translate(r.db.WithContext(ctx).Create(actor).Error)
}

func (r *ActorRepository) Update(ctx context.Context, actor *model.Actor) error {
	res := r.db.WithContext(ctx).Model(actor).
		Select("name", "age", "description", "image").
		Updates(actor)
	return affected(res)
}

// Delete removes an actor and its credits in both roles. Movies are kept.
func (r *ActorRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"movie_actors", "movie_directors"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE actor_id = ?", id).Error; err != nil {
				return err
			}
		}
		return affected(tx.Delete(&model.Actor{}, id))
	})
}

func (r *ActorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Actor{}).Count(&count).Error
	return count, err
}

// FindByName returns the first actor with exactly this name.
func (r *ActorRepository) FindByName(ctx context.Context, name string) (*model.Actor, error) {
	var actor model.Actor
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id ASC").First(&actor).Error; err != nil {
		return nil, translate(err)
	}
	return &actor, nil
}
