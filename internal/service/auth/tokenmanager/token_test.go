package tokenmanager

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
	"github.com/nkiryanov/passkeeper/internal/service/auth/blacklist"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	user := models.User{
		ID:       uuid.New(),
		Username: "username",
		Role:     models.RoleUser,
	}

	mustManager := func(t *testing.T, cfg Config) *TokenManager {
		t.Helper()
		if cfg.SecretKey == "" {
			cfg.SecretKey = "keep-it-secret"
		}
		m, err := New(cfg, blacklist.New())
		require.NoError(t, err)
		return m
	}

	t.Run("new", func(t *testing.T) {
		t.Run("requires secret key", func(t *testing.T) {
			_, err := New(Config{}, blacklist.New())

			require.Error(t, err)
			require.ErrorContains(t, err, "secret key")
		})

		t.Run("requires revocation list", func(t *testing.T) {
			_, err := New(Config{SecretKey: "keep-it-secret"}, nil)

			require.Error(t, err)
			require.ErrorContains(t, err, "revocation list")
		})

		t.Run("defaults applied", func(t *testing.T) {
			m := mustManager(t, Config{})

			assert.Equal(t, "HS256", m.alg.Alg())
			assert.Equal(t, defaultAccessTokenTTL, m.accessTTL)
		})
	})

	t.Run("issue and verify", func(t *testing.T) {
		m := mustManager(t, Config{})

		issued, err := m.Issue(user)
		require.NoError(t, err)
		require.NotEmpty(t, issued.Value)

		info, err := m.Verify(issued.Value)

		require.NoError(t, err)
		assert.Equal(t, user.Username, info.Subject)
		assert.Equal(t, user.ID, info.UserID)
		assert.Equal(t, []string{models.RoleUser}, info.Roles)
		assert.WithinDuration(t, issued.ExpiresAt, info.ExpiresAt, time.Second)
		assert.Greater(t, info.RemainingTTL, time.Duration(0))
	})

	t.Run("expired token", func(t *testing.T) {
		m := mustManager(t, Config{AccessTTL: -time.Minute})

		issued, err := m.Issue(user)
		require.NoError(t, err)

		_, err = m.Verify(issued.Value)

		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		m := mustManager(t, Config{SecretKey: "first-key"})
		other := mustManager(t, Config{SecretKey: "second-key"})

		issued, err := m.Issue(user)
		require.NoError(t, err)

		_, err = other.Verify(issued.Value)

		require.Error(t, err)
		require.NotErrorIs(t, err, apperrors.ErrTokenRevoked)
	})

	t.Run("garbage token", func(t *testing.T) {
		m := mustManager(t, Config{})

		_, err := m.Verify("not.a.token")

		require.Error(t, err)
	})

	t.Run("revocation beats valid signature", func(t *testing.T) {
		revoked := blacklist.New()
		m, err := New(Config{SecretKey: "keep-it-secret"}, revoked)
		require.NoError(t, err)

		issued, err := m.Issue(user)
		require.NoError(t, err)

		info, err := m.Verify(issued.Value)
		require.NoError(t, err, "token should verify before revocation")

		revoked.Revoke(issued.Value, info.RemainingTTL)

		_, err = m.Verify(issued.Value)
		require.ErrorIs(t, err, apperrors.ErrTokenRevoked, "revoked token must fail even though signature and expiry are fine")
	})
}
