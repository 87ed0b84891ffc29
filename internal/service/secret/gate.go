package secret

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
	"github.com/nkiryanov/passkeeper/internal/repository"
	"github.com/nkiryanov/passkeeper/internal/service/auth"
)

// Gate guards every secret decryption behind the user's secondary pin.
// The pin is stored as a bcrypt hash, so comparisons are constant time.
// There is no attempt counter or lockout here.
type Gate struct {
	cipher *Cipher
	hasher auth.PasswordHasher

	userRepo repository.UserRepo
	credRepo repository.CredentialRepo
}

func NewGate(cipher *Cipher, hasher auth.PasswordHasher, userRepo repository.UserRepo, credRepo repository.CredentialRepo) (*Gate, error) {
	if cipher == nil || userRepo == nil || credRepo == nil {
		return nil, errors.New("cipher and repos must not be nil")
	}
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &Gate{
		cipher:   cipher,
		hasher:   hasher,
		userRepo: userRepo,
		credRepo: credRepo,
	}, nil
}

// VerifyPin checks the supplied pin against the user's configured one
func (g *Gate) VerifyPin(ctx context.Context, user models.User, pin string) error {
	switch {
	case pin == "":
		return apperrors.ErrPinMissing
	case !user.HasPin():
		// Caller should route the user to the pin setup flow
		return apperrors.ErrPinNotConfigured
	}

	if err := g.hasher.Compare(user.HashedPin, pin); err != nil {
		return apperrors.ErrPinInvalid
	}

	return nil
}

// Reveal decrypts the credential secret after the pin check passes.
// A credential that does not exist and a credential owned by someone else
// produce the same ErrCredentialNotFound: existence of foreign ids must not
// leak through this call.
func (g *Gate) Reveal(ctx context.Context, user models.User, credentialID uuid.UUID, pin string) (string, error) {
	if err := g.VerifyPin(ctx, user, pin); err != nil {
		return "", err
	}

	cred, err := g.credRepo.GetCredential(ctx, credentialID)
	if err != nil {
		return "", err
	}
	if cred.UserID != user.ID {
		return "", apperrors.ErrCredentialNotFound
	}

	return g.cipher.Decrypt(cred.Secret)
}

// SetPin configures or replaces the secondary pin
// Requires the primary password to be re-verified first
func (g *Gate) SetPin(ctx context.Context, user models.User, password string, newPin string) error {
	if err := g.hasher.Compare(user.HashedPassword, password); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	if !validPin(newPin) {
		return apperrors.ErrPinFormat
	}

	hash, err := g.hasher.Hash(newPin)
	if err != nil {
		return fmt.Errorf("can't use this as pin. Err: %w", err)
	}

	return g.userRepo.SetPin(ctx, user.ID, hash)
}

// validPin requires 4 to 6 ascii digits
func validPin(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
