package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	HashedPassword string
	Role           string

	// bcrypt hash of the secondary pin, empty until the user configures one
	HashedPin string
}

// HasPin reports whether the secondary pin was ever configured
func (u User) HasPin() bool {
	return u.HashedPin != ""
}
