package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	_ "github.com/lib/pq"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/logger"
	"github.com/user/moviecatalog/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the database configured by cfg.DBDriver.
func InitDB(cfg *config.Config, log hclog.Logger) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		return OpenPostgres(cfg.DatabaseURL, log)
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenPostgres connects through lib/pq and hands the pool to gorm.
func OpenPostgres(databaseURL string, log hclog.Logger) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(log))
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a sqlite database with foreign keys enforced.
// The pool holds a single connection.
func OpenSQLite(path string, log hclog.Logger) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func gormConfig(log hclog.Logger) *gorm.Config {
	cfg := &gorm.Config{TranslateError: true, Logger: gormlogger.Discard}
	if log != nil {
		cfg.Logger = logger.NewGormLogger(log)
	}
	return cfg
}

var extraIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_movies_draft_premiere ON movies(draft, world_premiere)",
	"CREATE INDEX IF NOT EXISTS idx_reviews_movie_parent ON reviews(movie_id, parent_id)",
}

// Migrate creates or updates every table and the extra indexes.
func Migrate(ctx context.Context, db *gorm.DB, log hclog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range extraIndexes {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		if log != nil {
			log.Debug("ensured index", "sql", stmt)
		}
	}
	return nil
}

// Repositories groups every repository.
type Repositories struct {
	DB       *gorm.DB
	User     *UserRepository
	Category *CategoryRepository
	Genre    *GenreRepository
	Actor    *ActorRepository
	Movie    *MovieRepository
	Shot     *MovieShotRepository
	Star     *RatingStarRepository
	Rating   *RatingRepository
	Review   *ReviewRepository
}

// NewRepositories builds all repositories on db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:       db,
		User:     NewUserRepository(db),
		Category: NewCategoryRepository(db),
		Genre:    NewGenreRepository(db),
		Actor:    NewActorRepository(db),
		Movie:    NewMovieRepository(db),
		Shot:     NewMovieShotRepository(db),
		Star:     NewRatingStarRepository(db),
		Rating:   NewRatingRepository(db),
		Review:   NewReviewRepository(db),
	}
}
