package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nkiryanov/passkeeper/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string, role string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// Set (or replace) the hashed secondary pin
	SetPin(ctx context.Context, userID uuid.UUID, hashedPin string) error
}

// Credential repository interface
type CredentialRepo interface {
	CreateCredential(ctx context.Context, cred models.Credential) (models.Credential, error)

	// If credential not found must return apperrors.ErrCredentialNotFound
	GetCredential(ctx context.Context, id uuid.UUID) (models.Credential, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Credential, error)
	UpdateCredential(ctx context.Context, cred models.Credential) (models.Credential, error)
	DeleteCredential(ctx context.Context, id uuid.UUID) error
}

// Category repository interface
type CategoryRepo interface {
	// If category with the same name exists for the user has to return
	// apperrors.ErrCategoryExists
	CreateCategory(ctx context.Context, userID uuid.UUID, name string) (models.Category, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Category, error)

	// If category not found must return apperrors.ErrCategoryNotFound
	DeleteCategory(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
}

// Share grant repository interface
type ShareRepo interface {
	CreateShare(ctx context.Context, grant models.ShareGrant) (models.ShareGrant, error)

	// If grant not found must return apperrors.ErrShareNotFound
	GetShare(ctx context.Context, id uuid.UUID) (models.ShareGrant, error)

	// Mark grant accepted
	// If grant not found must return apperrors.ErrShareNotFound
	MarkAccepted(ctx context.Context, id uuid.UUID) (models.ShareGrant, error)

	// Hard delete
	// If grant not found must return apperrors.ErrShareNotFound
	DeleteShare(ctx context.Context, id uuid.UUID) error

	ListByCredential(ctx context.Context, credentialID uuid.UUID) ([]models.ShareGrant, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ShareGrant, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.ShareGrant, error)

	// Count grants owned by the user that expire after 'now'
	CountActiveByOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (int64, error)
}

// Storage aggregates all repositories over one connection or transaction
type Storage interface {
	User() UserRepo
	Credential() CredentialRepo
	Category() CategoryRepo
	Share() ShareRepo

	// Run fn within a db transaction
	InTx(ctx context.Context, fn func(s Storage) error) error
}
