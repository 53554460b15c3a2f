package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Bulk actions of the movie change list.
const (
	ActionPublish   = "publish"
	ActionUnpublish = "unpublish"
)

// ErrUnknownAction is returned for a bulk action name that does not exist.
var ErrUnknownAction = errors.New("unknown action")

// ActionResult reports how many rows a bulk action touched.
type ActionResult struct {
	Updated int64  `json:"updated"`
	Message string `json:"message"`
}

// Stats are the row counts shown on the admin dashboard.
type Stats struct {
	Movies     int64 `json:"movies"`
	Drafts     int64 `json:"drafts"`
	Categories int64 `json:"categories"`
	Genres     int64 `json:"genres"`
	Actors     int64 `json:"actors"`
	Shots      int64 `json:"shots"`
	Stars      int64 `json:"stars"`
	Ratings    int64 `json:"ratings"`
	Reviews    int64 `json:"reviews"`
}

// AdminService holds the admin operations that span more than one repository call.
type AdminService struct {
	repos   *repository.Repositories
	catalog *CatalogService
	log     hclog.Logger
}

func NewAdminService(repos *repository.Repositories, catalog *CatalogService, log hclog.Logger) *AdminService {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &AdminService{repos: repos, catalog: catalog, log: log.Named("admin")}
}

// UpdatedMessage is the confirmation shown after a bulk action.
func UpdatedMessage(n int64) string {
	if n == 1 {
		return "1 record was updated"
	}
	return fmt.Sprintf("%d records were updated", n)
}

// RunAction applies a bulk action to the selected movies.
func (s *AdminService) RunAction(ctx context.Context, action string, ids []uint) (ActionResult, error) {
	var draft bool
	switch action {
	case ActionPublish:
		draft = false
	case ActionUnpublish:
		draft = true
	default:
		return ActionResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	n, err := s.repos.Movie.SetDraft(ctx, ids, draft)
	if err != nil {
		return ActionResult{}, fmt.Errorf("%s movies: %w", action, err)
	}
	s.invalidate()
	s.log.Info("bulk action", "action", action, "selected", len(ids), "updated", n)
	return ActionResult{Updated: n, Message: UpdatedMessage(n)}, nil
}

// SetDraft toggles the draft flag of one movie.
func (s *AdminService) SetDraft(ctx context.Context, id uint, draft bool) error {
	n, err := s.repos.Movie.SetDraft(ctx, []uint{id}, draft)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.repos.Movie.FindByID(ctx, id); err != nil {
			return err
		}
	}
	s.invalidate()
	return nil
}

// SaveMovie creates the movie when its id is zero and updates it otherwise.
func (s *AdminService) SaveMovie(ctx context.Context, movie *model.Movie, rel repository.MovieRelations) error {
	var err error
	if movie.ID == 0 {
		err = s.repos.Movie.Create(ctx, movie, rel)
	} else {
		err = s.repos.Movie.Update(ctx, movie, rel)
	}
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// SaveMovieAsNew stores the edited form of an existing movie as a new row.
// The source movie must exist and is left unchanged.
func (s *AdminService) SaveMovieAsNew(ctx context.Context, sourceID uint, movie *model.Movie, rel repository.MovieRelations) error {
	if _, err := s.repos.Movie.FindByID(ctx, sourceID); err != nil {
		return err
	}
	movie.ID = 0
	movie.CreatedAt, movie.UpdatedAt = time.Time{}, time.Time{}
	if err := s.repos.Movie.Create(ctx, movie, rel); err != nil {
		return err
	}
	s.invalidate()
	s.log.Info("movie saved as new", "source", sourceID, "movie", movie.ID)
	return nil
}

// Dashboard gathers the row counts concurrently.
func (s *AdminService) Dashboard(ctx context.Context) (Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	counters := []struct {
		dst   *int64
		count func(context.Context) (int64, error)
	}{
		{&st.Movies, s.repos.Movie.Count},
		{&st.Drafts, s.repos.Movie.CountDrafts},
		{&st.Categories, s.repos.Category.Count},
		{&st.Genres, s.repos.Genre.Count},
		{&st.Actors, s.repos.Actor.Count},
		{&st.Shots, s.repos.Shot.Count},
		{&st.Stars, s.repos.Star.Count},
		{&st.Ratings, s.repos.Rating.Count},
		{&st.Reviews, s.repos.Review.Count},
	}
	for _, c := range counters {
		g.Go(func() error {
			n, err := c.count(ctx)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return st, nil
}

// Changed is called after any admin write.
func (s *AdminService) Changed() {
	s.invalidate()
}

func (s *AdminService) invalidate() {
	if s.catalog != nil {
		s.catalog.Invalidate()
	}
}
