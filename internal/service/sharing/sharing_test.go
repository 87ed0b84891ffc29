package sharing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
	"github.com/nkiryanov/passkeeper/internal/repository"
	"github.com/nkiryanov/passkeeper/internal/repository/postgres"
	"github.com/nkiryanov/passkeeper/internal/service/auth"
	"github.com/nkiryanov/passkeeper/internal/service/secret"
	"github.com/nkiryanov/passkeeper/internal/testutil"
)

const sharingTestCipherKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func Test_Sharing(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	hasher := auth.DefaultHasher

	createUser := func(ctx context.Context, t *testing.T, storage repository.Storage, username string, pin string) models.User {
		t.Helper()

		hash, err := hasher.Hash("pwd")
		require.NoError(t, err)

		user, err := storage.User().CreateUser(ctx, username, hash, models.RoleUser)
		require.NoError(t, err)

		if pin != "" {
			pinHash, err := hasher.Hash(pin)
			require.NoError(t, err)
			require.NoError(t, storage.User().SetPin(ctx, user.ID, pinHash))

			user, err = storage.User().GetUserByID(ctx, user.ID)
			require.NoError(t, err)
		}

		return user
	}

	createCredential := func(ctx context.Context, t *testing.T, storage repository.Storage, owner models.User, name string) models.Credential {
		t.Helper()

		cred, err := storage.Credential().CreateCredential(ctx, models.Credential{
			UserID: owner.ID,
			Name:   name,
			Secret: []byte("sealed"),
		})
		require.NoError(t, err)

		return cred
	}

	withSharing := func(t *testing.T, fn func(storage repository.Storage, s *Service)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			cipher, err := secret.NewCipher(sharingTestCipherKey)
			require.NoError(t, err)
			gate, err := secret.NewGate(cipher, hasher, storage.User(), storage.Credential())
			require.NoError(t, err)

			s, err := NewService(gate, storage.Share(), storage.Credential(), storage.User())
			require.NoError(t, err, "sharing service couldn't be created")

			fn(storage, s)
		})
	}

	t.Run("full grant lifecycle", func(t *testing.T) {
		withSharing(t, func(storage repository.Storage, s *Service) {
			owner := createUser(t.Context(), t, storage, "owner", "1234")
			recipient := createUser(t.Context(), t, storage, "recipient", "4321")
			cred := createCredential(t.Context(), t, storage, owner, "github")

			grant, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "1234", nil)
			require.NoError(t, err, "creating grant should be ok")
			assert.False(t, grant.Accepted, "fresh grant should be pending")
			assert.NotEmpty(t, grant.AccessToken)
			assert.True(t, grant.ExpiresAt.After(time.Now()), "default expiration should be in the future")

			shared, err := s.IsShared(t.Context(), cred.ID)
			require.NoError(t, err)
			assert.True(t, shared, "pending unexpired grant still counts as shared")

			accepted, err := s.Accept(t.Context(), grant.ID, recipient, "4321")
			require.NoError(t, err, "recipient should be able to accept")
			assert.True(t, accepted.Accepted)

			err = s.Revoke(t.Context(), grant.ID, owner, "1234")
			require.NoError(t, err, "owner should be able to revoke")

			_, err = storage.Share().GetShare(t.Context(), grant.ID)
			require.ErrorIs(t, err, apperrors.ErrShareNotFound, "revoked grant should be gone")
		})
	})

	t.Run("create", func(t *testing.T) {
		t.Run("requires owner pin", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				_, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "9999", nil)

				require.ErrorIs(t, err, apperrors.ErrPinInvalid)
			})
		})

		t.Run("self share rejected", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				_, err := s.Create(t.Context(), owner, cred.ID, owner.ID, "1234", nil)

				require.ErrorIs(t, err, apperrors.ErrSelfShare)
			})
		})

		t.Run("foreign credential looks missing", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				other := createUser(t.Context(), t, storage, "other", "4321")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				_, err := s.Create(t.Context(), other, cred.ID, owner.ID, "4321", nil)

				require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
			})
		})

		t.Run("unknown recipient", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				_, err := s.Create(t.Context(), owner, cred.ID, uuid.New(), "1234", nil)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})

		t.Run("explicit expiration honored", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
				grant, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "1234", &expiresAt)

				require.NoError(t, err)
				assert.WithinDuration(t, expiresAt, grant.ExpiresAt, time.Second)
			})
		})
	})

	t.Run("accept", func(t *testing.T) {
		t.Run("only recipient may accept", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")
				stranger := createUser(t.Context(), t, storage, "stranger", "5678")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				grant, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "1234", nil)
				require.NoError(t, err)

				_, err = s.Accept(t.Context(), grant.ID, stranger, "5678")

				require.ErrorIs(t, err, apperrors.ErrNotAuthorized)
			})
		})

		t.Run("second accept fails", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				grant, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "1234", nil)
				require.NoError(t, err)

				_, err = s.Accept(t.Context(), grant.ID, recipient, "4321")
				require.NoError(t, err)

				_, err = s.Accept(t.Context(), grant.ID, recipient, "4321")

				require.ErrorIs(t, err, apperrors.ErrShareAlreadyAccepted)
			})
		})
	})

	t.Run("revoke", func(t *testing.T) {
		t.Run("recipient may revoke too", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				grant, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "1234", nil)
				require.NoError(t, err)

				err = s.Revoke(t.Context(), grant.ID, recipient, "4321")

				require.NoError(t, err)
			})
		})

		t.Run("stranger may not", func(t *testing.T) {
			withSharing(t, func(storage repository.Storage, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")
				stranger := createUser(t.Context(), t, storage, "stranger", "5678")
				cred := createCredential(t.Context(), t, storage, owner, "github")

				grant, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "1234", nil)
				require.NoError(t, err)

				err = s.Revoke(t.Context(), grant.ID, stranger, "5678")

				require.ErrorIs(t, err, apperrors.ErrNotAuthorized)
			})
		})
	})

	t.Run("is shared ignores expired grants", func(t *testing.T) {
		withSharing(t, func(storage repository.Storage, s *Service) {
			owner := createUser(t.Context(), t, storage, "owner", "1234")
			recipient := createUser(t.Context(), t, storage, "recipient", "4321")
			cred := createCredential(t.Context(), t, storage, owner, "github")

			expiresAt := time.Now().Add(time.Minute)
			grant, err := s.Create(t.Context(), owner, cred.ID, recipient.ID, "1234", &expiresAt)
			require.NoError(t, err)

			s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

			shared, err := s.IsShared(t.Context(), cred.ID)
			require.NoError(t, err)
			assert.False(t, shared, "expired grant should not count as shared")

			grants, err := s.ListByCredential(t.Context(), cred.ID)
			require.NoError(t, err)
			assert.Len(t, grants, 1, "expired grant row still exists")
			assert.Equal(t, grant.ID, grants[0].ID)
		})
	})

	t.Run("listing and counting", func(t *testing.T) {
		withSharing(t, func(storage repository.Storage, s *Service) {
			owner := createUser(t.Context(), t, storage, "owner", "1234")
			recipient := createUser(t.Context(), t, storage, "recipient", "4321")
			cred1 := createCredential(t.Context(), t, storage, owner, "github")
			cred2 := createCredential(t.Context(), t, storage, owner, "gitlab")

			_, err := s.Create(t.Context(), owner, cred1.ID, recipient.ID, "1234", nil)
			require.NoError(t, err)
			expired := time.Now().Add(-time.Minute)
			_, err = s.Create(t.Context(), owner, cred2.ID, recipient.ID, "1234", &expired)
			require.NoError(t, err)

			outgoing, err := s.ListByOwner(t.Context(), owner)
			require.NoError(t, err)
			assert.Len(t, outgoing, 2)

			incoming, err := s.ListByRecipient(t.Context(), recipient)
			require.NoError(t, err)
			assert.Len(t, incoming, 2)

			count, err := s.CountActiveByUser(t.Context(), owner)
			require.NoError(t, err)
			assert.EqualValues(t, 1, count, "only the unexpired grant should be counted")

			count, err = s.CountActiveByUser(t.Context(), recipient)
			require.NoError(t, err)
			assert.EqualValues(t, 0, count, "recipient owns no grants")
		})
	})
}
