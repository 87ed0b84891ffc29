package refreshstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
)

const defaultTokenTTL = 30 * 24 * time.Hour

type entry struct {
	username  string
	expiresAt time.Time
}

// Store maps long lived refresh tokens to usernames, in process memory.
// Tokens are single use: Redeem removes the mapping atomically, so of two
// concurrent redeems of the same token exactly one succeeds. Moving this
// to a shared external store is the extension point for multi node
// deployments, not something this package does.
type Store struct {
	mu     sync.Mutex
	tokens map[string]entry

	tokenTTL time.Duration
	now      func() time.Time
}

type Option func(*Store)

// WithTokenTTL overrides the refresh token lifetime
func WithTokenTTL(d time.Duration) Option {
	return func(s *Store) { s.tokenTTL = d }
}

// WithNowFunc overrides the time source
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		tokens:   make(map[string]entry),
		tokenTTL: defaultTokenTTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Issue generates a random token and maps it to the username
func (s *Store) Issue(username string) (string, time.Time, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}
	token := hex.EncodeToString(b)
	expiresAt := s.now().Add(s.tokenTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = entry{username: username, expiresAt: expiresAt}

	return token, expiresAt, nil
}

// Redeem consumes the token and returns its username.
// Unknown, already consumed and expired tokens all fail the same way with
// apperrors.ErrRefreshTokenInvalid, so a replayed token is indistinguishable
// from a fabricated one.
func (s *Store) Redeem(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[token]
	if !ok {
		return "", apperrors.ErrRefreshTokenInvalid
	}

	delete(s.tokens, token)

	if !e.expiresAt.After(s.now()) {
		return "", apperrors.ErrRefreshTokenInvalid
	}

	return e.username, nil
}

// Invalidate removes the token if present
// Removing an unknown token is a no-op, not an error
func (s *Store) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Len returns the number of stored tokens
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
