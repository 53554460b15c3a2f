package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/patrickmn/go-cache"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/utils"
	"golang.org/x/sync/singleflight"
)

const (
	detailCacheSize = 512
	detailCacheTTL  = 10 * time.Minute
	listCacheTTL    = 5 * time.Minute

	keyCategories = "categories"
	keyGenres     = "genres"
	keyStars      = "stars"
)

// MovieDetail is the public view of one published movie.
type MovieDetail struct {
	Movie   *model.Movie             `json:"movie"`
	Reviews []*model.Review          `json:"reviews"`
	Rating  repository.RatingSummary `json:"rating"`
}

// ActorDetail is an actor with the published movies they worked on.
type ActorDetail struct {
	Actor    *model.Actor  `json:"actor"`
	ActedIn  []model.Movie `json:"acted_in"`
	Directed []model.Movie `json:"directed"`
}

// PublicFilter are the query parameters of the public movie list.
type PublicFilter struct {
	Category string
	Genre    string
	Year     uint16
	Search   string
	Page     int
}

// ReviewInput is a visitor review. ParentID answers another review of the same movie.
type ReviewInput struct {
	Email    string
	Name     string
	Text     string
	ParentID *uint
}

// CatalogService serves the public read side and owns its caches.
type CatalogService struct {
	repos   *repository.Repositories
	log     hclog.Logger
	details *utils.TTLCache[*MovieDetail]
	lists   *cache.Cache
	group   singleflight.Group
	// gen advances on every invalidation; a fill started under an older
	// generation is returned but not cached.
	gen atomic.Uint64
	// filled, when set, runs between a cache fill's load and its store.
	filled func(key string)
}

func NewCatalogService(repos *repository.Repositories, log hclog.Logger) *CatalogService {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &CatalogService{
		repos:   repos,
		log:     log.Named("catalog"),
		details: utils.NewTTLCache[*MovieDetail](detailCacheSize, detailCacheTTL),
		lists:   cache.New(listCacheTTL, 2*listCacheTTL),
	}
}

// Movies lists published movies, newest premiere first.
func (s *CatalogService) Movies(ctx context.Context, f PublicFilter) (*repository.Page[model.Movie], error) {
	return s.repos.Movie.List(ctx, repository.MovieFilter{
		ListQuery:     repository.ListQuery{Search: f.Search, Page: f.Page, PageSize: 20},
		CategorySlug:  f.Category,
		GenreSlug:     f.Genre,
		Year:          f.Year,
		PublishedOnly: true,
		Newest:        true,
	})
}

// Movie returns a published movie with threaded reviews and its rating summary.
func (s *CatalogService) Movie(ctx context.Context, slug string) (*MovieDetail, error) {
	if detail, ok := s.details.Get(slug); ok {
		return detail, nil
	}

	v, err, shared := s.group.Do(slug, func() (interface{}, error) {
		gen := s.gen.Load()
		detail, err := s.loadDetail(context.WithoutCancel(ctx), slug)
		if err != nil {
			return nil, err
		}
		s.store(slug, gen, func() { s.details.Set(slug, detail) })
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Trace("detail load shared", "slug", slug)
	}
	return v.(*MovieDetail), nil
}

func (s *CatalogService) loadDetail(ctx context.Context, slug string) (*MovieDetail, error) {
	movie, err := s.repos.Movie.FindBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repos.Review.ListByMovie(ctx, movie.ID)
	if err != nil {
		return nil, err
	}
	summary, err := s.repos.Rating.Summary(ctx, movie.ID)
	if err != nil {
		return nil, err
	}
	return &MovieDetail{
		Movie:   movie,
		Reviews: repository.Thread(reviews),
		Rating:  summary,
	}, nil
}

// AddReview stores a visitor review on a published movie.
func (s *CatalogService) AddReview(ctx context.Context, slug string, in ReviewInput) (*model.Review, error) {
	movie, err := s.repos.Movie.FindBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	review := &model.Review{
		Email:    in.Email,
		Name:     in.Name,
		Text:     in.Text,
		ParentID: in.ParentID,
		MovieID:  movie.ID,
	}
	if err := s.repos.Review.Create(ctx, review); err != nil {
		return nil, err
	}
	s.dropDetail(slug)
	s.log.Debug("review added", "movie", slug, "review", review.ID)
	return review, nil
}

// Rate records the star given by ip, replacing an earlier rating from the same ip.
func (s *CatalogService) Rate(ctx context.Context, slug, ip string, starID uint) (*model.Rating, error) {
	if ip == "" {
		return nil, errors.New("client ip is unknown")
	}
	movie, err := s.repos.Movie.FindBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	rating, err := s.repos.Rating.Rate(ctx, movie.ID, ip, starID)
	if err != nil {
		return nil, err
	}
	s.dropDetail(slug)
	return rating, nil
}

// Actor returns an actor with the published movies they acted in or directed.
func (s *CatalogService) Actor(ctx context.Context, id uint) (*ActorDetail, error) {
	actor, err := s.repos.Actor.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	acted, err := s.repos.Movie.ListByActor(ctx, id, repository.RoleActor, true)
	if err != nil {
		return nil, err
	}
	directed, err := s.repos.Movie.ListByActor(ctx, id, repository.RoleDirector, true)
	if err != nil {
		return nil, err
	}
	return &ActorDetail{Actor: actor, ActedIn: acted, Directed: directed}, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]model.Category, error) {
	return cached(ctx, s, keyCategories, s.repos.Category.All)
}

func (s *CatalogService) Genres(ctx context.Context) ([]model.Genre, error) {
	return cached(ctx, s, keyGenres, s.repos.Genre.All)
}

func (s *CatalogService) Stars(ctx context.Context) ([]model.RatingStar, error) {
	return cached(ctx, s, keyStars, s.repos.Star.All)
}

// Invalidate drops every cached public view.
func (s *CatalogService) Invalidate() {
	s.gen.Add(1)
	s.details.Clear()
	s.lists.Flush()
	s.log.Debug("public caches invalidated")
}

func (s *CatalogService) dropDetail(slug string) {
	s.gen.Add(1)
	s.details.Delete(slug)
}

// store runs set unless the caches were invalidated after generation gen was read.
func (s *CatalogService) store(key string, gen uint64, set func()) {
	if s.filled != nil {
		s.filled(key)
	}
	if s.gen.Load() != gen {
		s.log.Trace("stale fill discarded", "key", key)
		return
	}
	set()
}

func cached[T any](ctx context.Context, s *CatalogService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := s.lists.Get(key); ok {
		if items, ok := v.([]T); ok {
			return items, nil
		}
	}
	v, err, _ := s.group.Do("list:"+key, func() (interface{}, error) {
		gen := s.gen.Load()
		items, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		s.store(key, gen, func() { s.lists.SetDefault(key, items) })
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}
