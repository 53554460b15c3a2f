package model

import "strconv"

// Category groups movies (films, series, cartoons ...).
type Category struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:150;not null"`
	Description string `json:"description" gorm:"type:text"`
	Slug        string `json:"url" gorm:"column:url;size:160;not null;uniqueIndex"`
}

func (c Category) String() string { return c.Name }

// Genre of a movie.
type Genre struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"type:text"`
	Slug        string `json:"url" gorm:"column:url;size:160;not null;uniqueIndex"`
}

func (g Genre) String() string { return g.Name }

// Actor is a person credited on a movie, either as an actor or as a director.
type Actor struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:100;not null"`
	Age         uint16 `json:"age" gorm:"not null;default:0"`
	Description string `json:"description" gorm:"type:text"`
	Image       string `json:"image" gorm:"size:255"`
}

func (a Actor) String() string { return a.Name }

// RatingStar is one selectable star value.
type RatingStar struct {
	ID    uint  `json:"id" gorm:"primaryKey"`
	Value int16 `json:"value" gorm:"not null;default:0"`
}

func (s RatingStar) String() string { return strconv.Itoa(int(s.Value)) }
