package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
)

const (
	defaultAccessTokenTTL = 30 * time.Minute
	defaultSigningMethod  = "HS256"
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
	Roles  []string  `json:"roles"`
}

// RevocationList is consulted before any signature check
type RevocationList interface {
	IsRevoked(token string) bool
}

// TokenInfo is what Verify returns for a token it accepted
type TokenInfo struct {
	Subject      string
	UserID       uuid.UUID
	Roles        []string
	ExpiresAt    time.Time
	RemainingTTL time.Duration
}

// Token manager with sensible defaults
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access token lifetime
	// If not set than default is used
	AccessTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access token lifetime
	accessTTL time.Duration

	// Revoked tokens list, always checked first
	revoked RevocationList
}

func New(cfg Config, revoked RevocationList) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if revoked == nil {
		return nil, errors.New("revocation list must not be nil")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}

	return &TokenManager{
		key:       cfg.SecretKey,
		alg:       jwt.GetSigningMethod(cfg.Alg),
		accessTTL: cfg.AccessTTL,
		revoked:   revoked,
	}, nil
}

// Issue signs a new access token for the user
func (m *TokenManager) Issue(user models.User) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   user.Username,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: user.ID,
			Roles:  []string{user.Role},
		},
	)

	access, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: access, ExpiresAt: expiresAt}, nil
}

// Verify parses and validates the access token.
// The revocation list is consulted before the signature is even looked at:
// revocation must override a cryptographically valid, unexpired token.
// Fails closed on everything else: bad signature, structure, expiry.
func (m *TokenManager) Verify(access string) (TokenInfo, error) {
	if m.revoked.IsRevoked(access) {
		return TokenInfo{}, apperrors.ErrTokenRevoked
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenInfo{}, apperrors.ErrTokenExpired
	default:
		return TokenInfo{}, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	expiresAt := claims.ExpiresAt.Time
	return TokenInfo{
		Subject:      claims.Subject,
		UserID:       claims.UserID,
		Roles:        claims.Roles,
		ExpiresAt:    expiresAt,
		RemainingTTL: time.Until(expiresAt),
	}, nil
}
