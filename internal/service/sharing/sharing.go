package sharing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
	"github.com/nkiryanov/passkeeper/internal/repository"
)

// Default grant lifetime when the owner doesn't pick an expiration
const defaultGrantTTL = 30 * 24 * time.Hour

// PinChecker verifies the secondary pin of whoever is acting on a grant
type PinChecker interface {
	VerifyPin(ctx context.Context, user models.User, pin string) error
}

// Service drives the grant lifecycle: pending on create, accepted by the
// recipient, gone on revoke or after expiry. There is no way back from
// accepted to pending.
type Service struct {
	gate PinChecker

	shareRepo repository.ShareRepo
	credRepo  repository.CredentialRepo
	userRepo  repository.UserRepo

	now func() time.Time
}

func NewService(gate PinChecker, shareRepo repository.ShareRepo, credRepo repository.CredentialRepo, userRepo repository.UserRepo) (*Service, error) {
	if gate == nil || shareRepo == nil || credRepo == nil || userRepo == nil {
		return nil, errors.New("gate and repos must not be nil")
	}

	return &Service{
		gate:      gate,
		shareRepo: shareRepo,
		credRepo:  credRepo,
		userRepo:  userRepo,
		now:       time.Now,
	}, nil
}

// Create makes a pending grant for the recipient
// Owner's pin is verified first, nothing is decrypted here
func (s *Service) Create(ctx context.Context, owner models.User, credentialID uuid.UUID, recipientID uuid.UUID, pin string, expiresAt *time.Time) (models.ShareGrant, error) {
	var grant models.ShareGrant

	if err := s.gate.VerifyPin(ctx, owner, pin); err != nil {
		return grant, err
	}

	cred, err := s.credRepo.GetCredential(ctx, credentialID)
	if err != nil {
		return grant, err
	}
	if cred.UserID != owner.ID {
		return grant, apperrors.ErrCredentialNotFound
	}

	if recipientID == owner.ID {
		return grant, apperrors.ErrSelfShare
	}
	recipient, err := s.userRepo.GetUserByID(ctx, recipientID)
	if err != nil {
		return grant, err
	}

	expiration := s.now().Add(defaultGrantTTL)
	if expiresAt != nil {
		expiration = *expiresAt
	}

	accessToken, err := generateAccessToken()
	if err != nil {
		return grant, err
	}

	return s.shareRepo.CreateShare(ctx, models.ShareGrant{
		ID:           uuid.New(),
		CredentialID: cred.ID,
		OwnerID:      owner.ID,
		RecipientID:  recipient.ID,
		AccessToken:  accessToken,
		Accepted:     false,
		ExpiresAt:    expiration,
	})
}

// Accept confirms the grant on the recipient side
func (s *Service) Accept(ctx context.Context, grantID uuid.UUID, recipient models.User, pin string) (models.ShareGrant, error) {
	var accepted models.ShareGrant

	if err := s.gate.VerifyPin(ctx, recipient, pin); err != nil {
		return accepted, err
	}

	grant, err := s.shareRepo.GetShare(ctx, grantID)
	if err != nil {
		return accepted, err
	}
	if grant.RecipientID != recipient.ID {
		return accepted, apperrors.ErrNotAuthorized
	}
	if grant.Accepted {
		return accepted, apperrors.ErrShareAlreadyAccepted
	}

	return s.shareRepo.MarkAccepted(ctx, grant.ID)
}

// Revoke hard deletes the grant
// Only the owner or the recipient may do it, with their own pin
func (s *Service) Revoke(ctx context.Context, grantID uuid.UUID, requester models.User, pin string) error {
	grant, err := s.shareRepo.GetShare(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.OwnerID != requester.ID && grant.RecipientID != requester.ID {
		return apperrors.ErrNotAuthorized
	}

	if err := s.gate.VerifyPin(ctx, requester, pin); err != nil {
		return err
	}

	return s.shareRepo.DeleteShare(ctx, grant.ID)
}

// Remove deletes the grant without requester checks.
// This is the cascade path of credential deletion, which already verified
// the owner: grants are removed one by one so each removal is auditable.
func (s *Service) Remove(ctx context.Context, grantID uuid.UUID) error {
	return s.shareRepo.DeleteShare(ctx, grantID)
}

// IsShared reports whether the credential has at least one active grant
func (s *Service) IsShared(ctx context.Context, credentialID uuid.UUID) (bool, error) {
	grants, err := s.shareRepo.ListByCredential(ctx, credentialID)
	if err != nil {
		return false, err
	}

	now := s.now()
	for _, g := range grants {
		if g.Active(now) {
			return true, nil
		}
	}

	return false, nil
}

func (s *Service) ListByCredential(ctx context.Context, credentialID uuid.UUID) ([]models.ShareGrant, error) {
	return s.shareRepo.ListByCredential(ctx, credentialID)
}

func (s *Service) ListByOwner(ctx context.Context, user models.User) ([]models.ShareGrant, error) {
	return s.shareRepo.ListByOwner(ctx, user.ID)
}

func (s *Service) ListByRecipient(ctx context.Context, user models.User) ([]models.ShareGrant, error) {
	return s.shareRepo.ListByRecipient(ctx, user.ID)
}

// CountActiveByUser counts not yet expired grants the user owns
func (s *Service) CountActiveByUser(ctx context.Context, user models.User) (int64, error) {
	return s.shareRepo.CountActiveByOwner(ctx, user.ID, s.now())
}

func generateAccessToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating share access token. Err: %w", err)
	}

	return hex.EncodeToString(b), nil
}
