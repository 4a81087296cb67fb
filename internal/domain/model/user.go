package model

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Firstname      *string   `json:"firstname,omitempty"`
	Lastname       *string   `json:"lastname,omitempty"`
	HashedPassword string    `json:"-"` // Not exposed
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Role is a row of the role lookup table. Users relate to roles through a
// unique (user_id, role_id) edge set.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
