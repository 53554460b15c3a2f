package repository

import (
	"context"

	"github.com/user/moviecatalog/internal/model"
)

// MediaRefs returns every non-empty image URL stored on actors, movies and shots.
func (r *Repositories) MediaRefs(ctx context.Context) ([]string, error) {
	sources := []struct {
		model  interface{}
		column string
	}{
		{&model.Actor{}, "image"},
		{&model.Movie{}, "poster"},
		{&model.MovieShot{}, "image"},
	}

	var refs []string
	for _, src := range sources {
		var urls []string
		err := r.DB.WithContext(ctx).Model(src.model).
			Where(src.column+" <> ''").
			Pluck(src.column, &urls).Error
		if err != nil {
			return nil, err
		}
		refs = append(refs, urls...)
	}
	return refs, nil
}
