package model

import (
	"fmt"
	"time"
)

// Movie is a catalog entry.
//
// Draft movies are hidden from the public API.
type Movie struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Title         string    `json:"title" gorm:"size:100;not null;index"`
	Tagline       string    `json:"tagline" gorm:"size:100;not null;default:''"`
	Description   string    `json:"description" gorm:"type:text"`
	Poster        string    `json:"poster" gorm:"size:255"`
	Year          uint16    `json:"year" gorm:"not null;default:2019;index"`
	Country       string    `json:"country" gorm:"size:30"`
	WorldPremiere time.Time `json:"world_premiere" gorm:"type:date"`
	Budget        uint32    `json:"budget" gorm:"not null;default:0"`
	FeesInUSA     uint32    `json:"fees_in_usa" gorm:"column:fees_in_usa;not null;default:0"`
	FeesInWorld   uint32    `json:"fees_in_world" gorm:"column:fees_in_world;not null;default:0"`
	CategoryID    *uint     `json:"category_id" gorm:"index"`
	Category      *Category `json:"category,omitempty" gorm:"constraint:OnDelete:SET NULL;"`
	Slug          string    `json:"url" gorm:"column:url;size:160;not null;uniqueIndex"`
	Draft         bool      `json:"draft" gorm:"not null;default:false;index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Directors []Actor     `json:"directors,omitempty" gorm:"many2many:movie_directors;"`
	Actors    []Actor     `json:"actors,omitempty" gorm:"many2many:movie_actors;"`
	Genres    []Genre     `json:"genres,omitempty" gorm:"many2many:movie_genres;"`
	Shots     []MovieShot `json:"shots,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
	Reviews   []Review    `json:"reviews,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
	Ratings   []Rating    `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
}

func (m Movie) String() string { return m.Title }

// MovieShot is a still image from a movie.
type MovieShot struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"type:text"`
	Image       string `json:"image" gorm:"size:255"`
	MovieID     uint   `json:"movie_id" gorm:"not null;index"`
	Movie       *Movie `json:"movie,omitempty"`
}

func (s MovieShot) String() string { return s.Title }

// Rating is one viewer's star for a movie. A viewer is identified by IP.
type Rating struct {
	ID      uint        `json:"id" gorm:"primaryKey"`
	IP      string      `json:"ip" gorm:"size:45;not null;uniqueIndex:idx_ratings_movie_ip,priority:2"`
	StarID  uint        `json:"star_id" gorm:"not null;index"`
	Star    *RatingStar `json:"star,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
	MovieID uint        `json:"movie_id" gorm:"not null;uniqueIndex:idx_ratings_movie_ip,priority:1"`
	Movie   *Movie      `json:"movie,omitempty"`
}

func (r Rating) String() string {
	star, movie := "", ""
	if r.Star != nil {
		star = r.Star.String()
	}
	if r.Movie != nil {
		movie = r.Movie.Title
	}
	return fmt.Sprintf("%s - %s", star, movie)
}

// Review is a visitor comment. Replies point at their parent review.
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"size:254;not null"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	ParentID  *uint     `json:"parent_id" gorm:"index"`
	Parent    *Review   `json:"-" gorm:"constraint:OnDelete:SET NULL;"`
	MovieID   uint      `json:"movie_id" gorm:"not null;index"`
	Movie     *Movie    `json:"movie,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Replies []*Review `json:"replies,omitempty" gorm:"-"`
}

func (r Review) String() string {
	if r.Movie != nil {
		return fmt.Sprintf("%s - %s", r.Name, r.Movie.Title)
	}
	return r.Name
}
