package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/logger"
	"github.com/nkiryanov/passkeeper/internal/models"
	"github.com/nkiryanov/passkeeper/internal/repository"
)

// Encrypter seals plaintext secrets before they touch storage
type Encrypter interface {
	Encrypt(plaintext string) ([]byte, error)
}

// SharingManager is the part of the sharing service the delete protocol needs
type SharingManager interface {
	IsShared(ctx context.Context, credentialID uuid.UUID) (bool, error)
	ListByCredential(ctx context.Context, credentialID uuid.UUID) ([]models.ShareGrant, error)
	Remove(ctx context.Context, grantID uuid.UUID) error
}

// Service owns credential and category CRUD
type Service struct {
	cipher  Encrypter
	sharing SharingManager

	credRepo     repository.CredentialRepo
	categoryRepo repository.CategoryRepo

	logger logger.Logger
}

func NewService(cipher Encrypter, sharing SharingManager, credRepo repository.CredentialRepo, categoryRepo repository.CategoryRepo, l logger.Logger) (*Service, error) {
	if cipher == nil || sharing == nil || credRepo == nil || categoryRepo == nil {
		return nil, errors.New("cipher, sharing and repos must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		cipher:       cipher,
		sharing:      sharing,
		credRepo:     credRepo,
		categoryRepo: categoryRepo,
		logger:       l,
	}, nil
}

type CreateParams struct {
	Name       string
	Secret     string
	URL        string
	Notes      string
	CategoryID *uuid.UUID
}

func (s *Service) Create(ctx context.Context, owner models.User, params CreateParams) (models.Credential, error) {
	blob, err := s.cipher.Encrypt(params.Secret)
	if err != nil {
		return models.Credential{}, fmt.Errorf("can't encrypt secret. Err: %w", err)
	}

	return s.credRepo.CreateCredential(ctx, models.Credential{
		UserID:        owner.ID,
		Name:          params.Name,
		Secret:        blob,
		URL:           params.URL,
		Notes:         params.Notes,
		CategoryID:    params.CategoryID,
		StrengthScore: Score(params.Secret),
	})
}

func (s *Service) List(ctx context.Context, owner models.User) ([]models.Credential, error) {
	return s.credRepo.ListByUser(ctx, owner.ID)
}

// Get returns the credential metadata (secret blob stays sealed)
// Foreign and missing ids fail identically
func (s *Service) Get(ctx context.Context, owner models.User, id uuid.UUID) (models.Credential, error) {
	cred, err := s.credRepo.GetCredential(ctx, id)
	if err != nil {
		return cred, err
	}
	if cred.UserID != owner.ID {
		return models.Credential{}, apperrors.ErrCredentialNotFound
	}

	return cred, nil
}

type UpdateParams struct {
	Name       string
	URL        string
	Notes      string
	CategoryID *uuid.UUID

	// New secret value, unchanged when empty
	Secret string
}

func (s *Service) Update(ctx context.Context, owner models.User, id uuid.UUID, params UpdateParams) (models.Credential, error) {
	cred, err := s.Get(ctx, owner, id)
	if err != nil {
		return cred, err
	}

	cred.Name = params.Name
	cred.URL = params.URL
	cred.Notes = params.Notes
	cred.CategoryID = params.CategoryID

	if params.Secret != "" {
		blob, err := s.cipher.Encrypt(params.Secret)
		if err != nil {
			return cred, fmt.Errorf("can't encrypt secret. Err: %w", err)
		}
		cred.Secret = blob
		cred.StrengthScore = Score(params.Secret)
	}

	return s.credRepo.UpdateCredential(ctx, cred)
}

// Delete removes the credential, honoring the sharing protocol:
// a credential with at least one active grant is deleted only with the
// explicit confirmation, and every referencing grant is removed one by one
// (each removal logged on its own) strictly before the credential row goes.
func (s *Service) Delete(ctx context.Context, owner models.User, id uuid.UUID, confirmed bool) error {
	cred, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}

	shared, err := s.sharing.IsShared(ctx, cred.ID)
	if err != nil {
		return err
	}
	if shared && !confirmed {
		return apperrors.ErrConfirmationRequired
	}

	// Expired grants still reference the credential, drop them all
	grants, err := s.sharing.ListByCredential(ctx, cred.ID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		if err := s.sharing.Remove(ctx, grant.ID); err != nil {
			return fmt.Errorf("can't remove grant %s before credential delete. Err: %w", grant.ID, err)
		}
		s.logger.Info("share grant revoked on credential delete",
			"grant_id", grant.ID,
			"credential_id", cred.ID,
			"owner_id", grant.OwnerID,
			"recipient_id", grant.RecipientID,
		)
	}

	return s.credRepo.DeleteCredential(ctx, cred.ID)
}

func (s *Service) CreateCategory(ctx context.Context, owner models.User, name string) (models.Category, error) {
	return s.categoryRepo.CreateCategory(ctx, owner.ID, name)
}

func (s *Service) ListCategories(ctx context.Context, owner models.User) ([]models.Category, error) {
	return s.categoryRepo.ListByUser(ctx, owner.ID)
}

func (s *Service) DeleteCategory(ctx context.Context, owner models.User, id uuid.UUID) error {
	return s.categoryRepo.DeleteCategory(ctx, owner.ID, id)
}
