package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
	"github.com/nkiryanov/passkeeper/internal/repository"
	"github.com/nkiryanov/passkeeper/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refresh_token"
)

// RefreshStore keeps long lived refresh tokens
type RefreshStore interface {
	Issue(username string) (token string, expiresAt time.Time, err error)

	// Redeem consumes the token: the second call with the same token must
	// fail with apperrors.ErrRefreshTokenInvalid
	Redeem(token string) (username string, err error)

	// Idempotent removal
	Invalidate(token string)
}

// Revoker puts session tokens on the revocation list
type Revoker interface {
	Revoke(token string, ttl time.Duration)
}

type Config struct {
	// Hasher to use during user registration or login process
	// BcryptHasher is used if not set
	Hasher PasswordHasher

	// HTTP carrier details, defaults applied if empty
	AccessHeaderName  string
	AccessAuthScheme  string
	RefreshCookieName string
}

// Auth service: registration, login, token rotation and revocation
type Service struct {
	token   *tokenmanager.TokenManager
	refresh RefreshStore
	revoker Revoker
	hasher  PasswordHasher

	userRepo repository.UserRepo

	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, refresh RefreshStore, revoker Revoker, userRepo repository.UserRepo) (*Service, error) {
	if token == nil || refresh == nil || revoker == nil || userRepo == nil {
		return nil, errors.New("token manager, stores and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)

	return &Service{
		token:             token,
		refresh:           refresh,
		revoker:           revoker,
		hasher:            hasher,
		userRepo:          userRepo,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		refreshCookieName: cfg.RefreshCookieName,
	}, nil
}

func (s *Service) Register(ctx context.Context, username string, password string) (models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, username, hash, models.RoleUser)
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.issuePair(user)
}

// Login checks the password and issues a fresh token pair
// Unknown username and wrong password fail exactly the same way
func (s *Service) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		// Burn comparable time so a missing user is not detectable by timing
		_, _ = s.hasher.Hash(password)
		return models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	return s.issuePair(user)
}

// Refresh rotates the refresh token: the old one is consumed atomically and
// a brand new pair is issued. Replaying a consumed token fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	username, err := s.refresh.Redeem(refreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh token owner is gone. Err: %w", err)
	}

	return s.issuePair(user)
}

// Logout revokes the access token for its remaining lifetime and drops the
// refresh token. Already dead tokens are ignored: logging out twice is fine
// and logout can't be used to probe token state.
func (s *Service) Logout(ctx context.Context, access string, refreshToken string) {
	if info, err := s.token.Verify(access); err == nil {
		s.revoker.Revoke(access, info.RemainingTTL)
	}

	s.refresh.Invalidate(refreshToken)
}

// Validate verifies the access token (revocation list first) and returns
// its claims
func (s *Service) Validate(ctx context.Context, access string) (tokenmanager.TokenInfo, error) {
	return s.token.Verify(access)
}

// GetUserFromRequest authenticates the request by its bearer token
func (s *Service) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	access, err := s.GetAccess(r)
	if err != nil {
		return models.User{}, err
	}

	info, err := s.token.Verify(access)
	if err != nil {
		return models.User{}, err
	}

	return s.userRepo.GetUserByID(ctx, info.UserID)
}

// SetTokenPairToResponse writes access token to the auth header and refresh
// token to a http only cookie
func (s *Service) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		Expires:  pair.Refresh.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// SetTokenPairToRequest sets the same carriers on an outgoing request
// Mostly useful in tests
func (s *Service) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.Header.Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)
	r.AddCookie(&http.Cookie{Name: s.refreshCookieName, Value: pair.Refresh.Value})
}

// GetAccess extracts the bearer access token from the request
func (s *Service) GetAccess(r *http.Request) (string, error) {
	header := r.Header.Get(s.accessHeaderName)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, s.accessAuthScheme) || token == "" {
		return "", errors.New("no access token in request")
	}

	return token, nil
}

// GetRefresh extracts the refresh token from the request cookie
func (s *Service) GetRefresh(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil {
		return "", fmt.Errorf("no refresh token in request. Err: %w", err)
	}

	return cookie.Value, nil
}

func (s *Service) issuePair(user models.User) (models.TokenPair, error) {
	access, err := s.token.Issue(user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. Err: %w", err)
	}

	refresh, expiresAt, err := s.refresh.Issue(user.Username)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh token could not be generated. Err: %w", err)
	}

	return models.TokenPair{
		Access:  access,
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: expiresAt},
	}, nil
}
