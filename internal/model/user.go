package model

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is an admin-surface account.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:150;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:100;not null"`
	Role         string    `json:"role" gorm:"size:20;not null;default:'staff'"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may use the admin surface.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SessionUser is the user information kept in the session cookie.
type SessionUser struct {
	ID       uint
	Username string
	Role     string
}

// AllModels lists every table, parents before children.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Genre{},
		&Actor{},
		&RatingStar{},
		&Movie{},
		&MovieShot{},
		&Rating{},
		&Review{},
	}
}
