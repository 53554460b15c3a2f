package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/utils"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is the YAML document read by loaddata.
// Movies reference categories and genres by slug and people by name.
type Fixtures struct {
	Categories []TermFixture  `yaml:"categories"`
	Genres     []TermFixture  `yaml:"genres"`
	Actors     []ActorFixture `yaml:"actors"`
	Stars      []int16        `yaml:"stars"`
	Movies     []MovieFixture `yaml:"movies"`
}

type TermFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

type ActorFixture struct {
	Name        string `yaml:"name"`
	Age         uint16 `yaml:"age"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
}

type MovieFixture struct {
	Title         string   `yaml:"title"`
	Tagline       string   `yaml:"tagline"`
	Description   string   `yaml:"description"`
	Poster        string   `yaml:"poster"`
	Year          uint16   `yaml:"year"`
	Country       string   `yaml:"country"`
	WorldPremiere string   `yaml:"world_premiere"`
	Budget        uint32   `yaml:"budget"`
	FeesInUSA     uint32   `yaml:"fees_in_usa"`
	FeesInWorld   uint32   `yaml:"fees_in_world"`
	Category      string   `yaml:"category"`
	Genres        []string `yaml:"genres"`
	Actors        []string `yaml:"actors"`
	Directors     []string `yaml:"directors"`
	URL           string   `yaml:"url"`
	Draft         bool     `yaml:"draft"`
}

// FixtureReport counts the rows written by one load.
type FixtureReport struct {
	Created int
	Updated int
}

// FixtureLoader writes fixtures in one transaction. Loading the same file
// twice updates the rows created the first time.
type FixtureLoader struct {
	db  *gorm.DB
	log hclog.Logger
}

func NewFixtureLoader(db *gorm.DB, log hclog.Logger) *FixtureLoader {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &FixtureLoader{db: db, log: log.Named("fixtures")}
}

func (l *FixtureLoader) LoadFile(ctx context.Context, path string) (FixtureReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return FixtureReport{}, err
	}
	defer f.Close()
	return l.Load(ctx, f)
}

func (l *FixtureLoader) Load(ctx context.Context, r io.Reader) (FixtureReport, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return FixtureReport{}, fmt.Errorf("parse fixtures: %w", err)
	}

	var report FixtureReport
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := &fixtureWriter{repos: repository.NewRepositories(tx), report: &report}
		steps := []func(context.Context, Fixtures) error{
			w.categories,
			w.genres,
			w.actors,
			w.stars,
			w.movies,
		}
		for _, step := range steps {
			if err := step(ctx, fx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return FixtureReport{}, err
	}
	l.log.Info("fixtures loaded", "created", report.Created, "updated", report.Updated)
	return report, nil
}

type fixtureWriter struct {
	repos  *repository.Repositories
	report *FixtureReport
}

func (w *fixtureWriter) count(existed bool) {
	if existed {
		w.report.Updated++
	} else {
		w.report.Created++
	}
}

func slugOf(url, name string) string {
	if url != "" {
		return url
	}
	return utils.Slugify(name)
}

func (w *fixtureWriter) categories(ctx context.Context, fx Fixtures) error {
	for _, c := range fx.Categories {
		slug := slugOf(c.URL, c.Name)
		existing, err := w.repos.Category.FindBySlug(ctx, slug)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		row := &model.Category{Name: c.Name, Description: c.Description, Slug: slug}
		if existing != nil {
			row.ID = existing.ID
			err = w.repos.Category.Update(ctx, row)
		} else {
			err = w.repos.Category.Create(ctx, row)
		}
		if err != nil {
			return fmt.Errorf("category %q: %w", slug, err)
		}
		w.count(existing != nil)
	}
	return nil
}

func (w *fixtureWriter) genres(ctx context.Context, fx Fixtures) error {
	for _, g := range fx.Genres {
		slug := slugOf(g.URL, g.Name)
		existing, err := w.repos.Genre.FindBySlug(ctx, slug)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		row := &model.Genre{Name: g.Name, Description: g.Description, Slug: slug}
		if existing != nil {
			row.ID = existing.ID
			err = w.repos.Genre.Update(ctx, row)
		} else {
			err = w.repos.Genre.Create(ctx, row)
		}
		if err != nil {
			return fmt.Errorf("genre %q: %w", slug, err)
		}
		w.count(existing != nil)
	}
	return nil
}

func (w *fixtureWriter) actors(ctx context.Context, fx Fixtures) error {
	for _, a := range fx.Actors {
		existing, err := w.repos.Actor.FindByName(ctx, a.Name)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		row := &model.Actor{Name: a.Name, Age: a.Age, Description: a.Description, Image: a.Image}
		if existing != nil {
			row.ID = existing.ID
			err = w.repos.Actor.Update(ctx, row)
		} else {
			err = w.repos.Actor.Create(ctx, row)
		}
		if err != nil {
			return fmt.Errorf("actor %q: %w", a.Name, err)
		}
		w.count(existing != nil)
	}
	return nil
}

func (w *fixtureWriter) stars(ctx context.Context, fx Fixtures) error {
	for _, v := range fx.Stars {
		_, err := w.repos.Star.FindByValue(ctx, v)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := w.repos.Star.Create(ctx, &model.RatingStar{Value: v}); err != nil {
			return fmt.Errorf("star %d: %w", v, err)
		}
		w.count(false)
	}
	return nil
}

func (w *fixtureWriter) movies(ctx context.Context, fx Fixtures) error {
	for _, m := range fx.Movies {
		slug := slugOf(m.URL, m.Title)
		rel, err := w.relations(ctx, m)
		if err != nil {
			return fmt.Errorf("movie %q: %w", slug, err)
		}

		row := &model.Movie{
			Title:       m.Title,
			Tagline:     m.Tagline,
			Description: m.Description,
			Poster:      m.Poster,
			Year:        m.Year,
			Country:     m.Country,
			Budget:      m.Budget,
			FeesInUSA:   m.FeesInUSA,
			FeesInWorld: m.FeesInWorld,
			Slug:        slug,
			Draft:       m.Draft,
		}
		if row.Year == 0 {
			row.Year = 2019
		}
		if m.WorldPremiere != "" {
			row.WorldPremiere, err = time.Parse(time.DateOnly, m.WorldPremiere)
			if err != nil {
				return fmt.Errorf("movie %q: world_premiere: %w", slug, err)
			}
		} else {
			row.WorldPremiere = time.Now().UTC().Truncate(24 * time.Hour)
		}

		existing, err := w.repos.Movie.FindBySlug(ctx, slug, false)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if existing != nil {
			row.ID = existing.ID
			err = w.repos.Movie.Update(ctx, row, rel)
		} else {
			err = w.repos.Movie.Create(ctx, row, rel)
		}
		if err != nil {
			return fmt.Errorf("movie %q: %w", slug, err)
		}
		w.count(existing != nil)
	}
	return nil
}

func (w *fixtureWriter) relations(ctx context.Context, m MovieFixture) (repository.MovieRelations, error) {
	var rel repository.MovieRelations
	if m.Category != "" {
		c, err := w.repos.Category.FindBySlug(ctx, m.Category)
		if err != nil {
			return rel, fmt.Errorf("category %q: %w", m.Category, err)
		}
		rel.CategoryID = &c.ID
	}
	for _, slug := range m.Genres {
		g, err := w.repos.Genre.FindBySlug(ctx, slug)
		if err != nil {
			return rel, fmt.Errorf("genre %q: %w", slug, err)
		}
		rel.GenreIDs = append(rel.GenreIDs, g.ID)
	}
	var err error
	if rel.ActorIDs, err = w.people(ctx, m.Actors); err != nil {
		return rel, err
	}
	if rel.DirectorIDs, err = w.people(ctx, m.Directors); err != nil {
		return rel, err
	}
	return rel, nil
}

func (w *fixtureWriter) people(ctx context.Context, names []string) ([]uint, error) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		a, err := w.repos.Actor.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("person %q: %w", name, err)
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}
