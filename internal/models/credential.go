package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a stored secret with its metadata.
// Secret holds the AES-GCM sealed value and is opaque outside the cipher.
type Credential struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Secret        []byte
	URL           string
	Notes         string
	CategoryID    *uuid.UUID
	StrengthScore int
	CreatedAt     time.Time
}

type Category struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
}
