package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareGrant gives RecipientID access to the owner's credential until
// ExpiresAt. Accepted stays false until the recipient confirms the grant
// with their own pin.
type ShareGrant struct {
	ID           uuid.UUID
	CredentialID uuid.UUID
	OwnerID      uuid.UUID
	RecipientID  uuid.UUID
	AccessToken  string
	Accepted     bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Active reports whether the grant is still honored
func (g ShareGrant) Active(now time.Time) bool {
	return g.ExpiresAt.After(now)
}
