package credential

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
	"github.com/nkiryanov/passkeeper/internal/service/sharing"
	"github.com/nkiryanov/passkeeper/internal/testutil"
)

const credTestCipherKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func Test_Credential(t *testing.T) {
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

	// Build the whole credential stack over one transaction: cipher, pin
	// gate, sharing and the credential service itself
	withService := func(t *testing.T, fn func(storage repository.Storage, shr *sharing.Service, s *Service)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			cipher, err := secret.NewCipher(credTestCipherKey)
			require.NoError(t, err)
			gate, err := secret.NewGate(cipher, hasher, storage.User(), storage.Credential())
			require.NoError(t, err)
			shr, err := sharing.NewService(gate, storage.Share(), storage.Credential(), storage.User())
			require.NoError(t, err)

			s, err := NewService(cipher, shr, storage.Credential(), storage.Category(), nil)
			require.NoError(t, err, "credential service couldn't be created")

			fn(storage, shr, s)
		})
	}

	t.Run("create", func(t *testing.T) {
		withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
			user := createUser(t.Context(), t, storage, "nkiryanov", "")

			cred, err := s.Create(t.Context(), user, CreateParams{
				Name:   "github",
				Secret: "hunter2",
				URL:    "https://github.com",
				Notes:  "work account",
			})

			require.NoError(t, err)
			assert.Equal(t, "github", cred.Name)
			assert.Equal(t, user.ID, cred.UserID)
			assert.NotEmpty(t, cred.Secret, "stored secret should be the sealed blob")
			assert.NotEqual(t, []byte("hunter2"), cred.Secret, "plaintext must never hit storage")
			assert.Equal(t, Score("hunter2"), cred.StrengthScore)
		})
	})

	t.Run("get", func(t *testing.T) {
		t.Run("own credential ok", func(t *testing.T) {
			withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
				user := createUser(t.Context(), t, storage, "nkiryanov", "")

				created, err := s.Create(t.Context(), user, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)

				got, err := s.Get(t.Context(), user, created.ID)

				require.NoError(t, err)
				assert.Equal(t, created.ID, got.ID)
			})
		})

		t.Run("foreign and missing fail identically", func(t *testing.T) {
			withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "")
				intruder := createUser(t.Context(), t, storage, "intruder", "")

				created, err := s.Create(t.Context(), owner, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)

				_, err = s.Get(t.Context(), intruder, created.ID)
				require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)

				_, err = s.Get(t.Context(), owner, uuid.New())
				require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
			})
		})
	})

	t.Run("list returns only own credentials", func(t *testing.T) {
		withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
			user := createUser(t.Context(), t, storage, "nkiryanov", "")
			other := createUser(t.Context(), t, storage, "other", "")

			_, err := s.Create(t.Context(), user, CreateParams{Name: "github", Secret: "hunter2"})
			require.NoError(t, err)
			_, err = s.Create(t.Context(), other, CreateParams{Name: "gitlab", Secret: "hunter3"})
			require.NoError(t, err)

			creds, err := s.List(t.Context(), user)

			require.NoError(t, err)
			require.Len(t, creds, 1)
			assert.Equal(t, "github", creds[0].Name)
		})
	})

	t.Run("update", func(t *testing.T) {
		t.Run("empty secret keeps the old blob", func(t *testing.T) {
			withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
				user := createUser(t.Context(), t, storage, "nkiryanov", "")

				created, err := s.Create(t.Context(), user, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)

				updated, err := s.Update(t.Context(), user, created.ID, UpdateParams{Name: "github-work"})

				require.NoError(t, err)
				assert.Equal(t, "github-work", updated.Name)
				assert.Equal(t, created.Secret, updated.Secret, "secret blob should be untouched")
				assert.Equal(t, created.StrengthScore, updated.StrengthScore)
			})
		})

		t.Run("new secret gets resealed and rescored", func(t *testing.T) {
			withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
				user := createUser(t.Context(), t, storage, "nkiryanov", "")

				created, err := s.Create(t.Context(), user, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)

				updated, err := s.Update(t.Context(), user, created.ID, UpdateParams{Name: "github", Secret: "Correct-Horse-42"})

				require.NoError(t, err)
				assert.NotEqual(t, created.Secret, updated.Secret)
				assert.Equal(t, Score("Correct-Horse-42"), updated.StrengthScore)
			})
		})
	})

	t.Run("delete", func(t *testing.T) {
		t.Run("unshared credential goes without confirmation", func(t *testing.T) {
			withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
				user := createUser(t.Context(), t, storage, "nkiryanov", "")

				created, err := s.Create(t.Context(), user, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)

				err = s.Delete(t.Context(), user, created.ID, false)

				require.NoError(t, err)
				_, err = s.Get(t.Context(), user, created.ID)
				require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
			})
		})

		t.Run("shared credential demands confirmation", func(t *testing.T) {
			withService(t, func(storage repository.Storage, shr *sharing.Service, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")

				created, err := s.Create(t.Context(), owner, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)
				_, err = shr.Create(t.Context(), owner, created.ID, recipient.ID, "1234", nil)
				require.NoError(t, err)

				err = s.Delete(t.Context(), owner, created.ID, false)

				require.ErrorIs(t, err, apperrors.ErrConfirmationRequired)
				_, err = s.Get(t.Context(), owner, created.ID)
				require.NoError(t, err, "credential should survive the refused delete")
			})
		})

		t.Run("confirmed delete cascades over grants", func(t *testing.T) {
			withService(t, func(storage repository.Storage, shr *sharing.Service, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")

				created, err := s.Create(t.Context(), owner, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)
				_, err = shr.Create(t.Context(), owner, created.ID, recipient.ID, "1234", nil)
				require.NoError(t, err)
				expired := time.Now().Add(-time.Minute)
				_, err = shr.Create(t.Context(), owner, created.ID, recipient.ID, "1234", &expired)
				require.NoError(t, err)

				err = s.Delete(t.Context(), owner, created.ID, true)

				require.NoError(t, err)
				_, err = s.Get(t.Context(), owner, created.ID)
				require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)

				grants, err := shr.ListByCredential(t.Context(), created.ID)
				require.NoError(t, err)
				assert.Empty(t, grants, "no grants should survive, expired ones included")
			})
		})

		t.Run("expired grants alone don't demand confirmation", func(t *testing.T) {
			withService(t, func(storage repository.Storage, shr *sharing.Service, s *Service) {
				owner := createUser(t.Context(), t, storage, "owner", "1234")
				recipient := createUser(t.Context(), t, storage, "recipient", "4321")

				created, err := s.Create(t.Context(), owner, CreateParams{Name: "github", Secret: "hunter2"})
				require.NoError(t, err)
				expired := time.Now().Add(-time.Minute)
				_, err = shr.Create(t.Context(), owner, created.ID, recipient.ID, "1234", &expired)
				require.NoError(t, err)

				err = s.Delete(t.Context(), owner, created.ID, false)

				require.NoError(t, err, "only active grants should gate the delete")
			})
		})
	})

	t.Run("categories", func(t *testing.T) {
		withService(t, func(storage repository.Storage, _ *sharing.Service, s *Service) {
			user := createUser(t.Context(), t, storage, "nkiryanov", "")

			category, err := s.CreateCategory(t.Context(), user, "work")
			require.NoError(t, err)

			_, err = s.CreateCategory(t.Context(), user, "work")
			require.ErrorIs(t, err, apperrors.ErrCategoryExists)

			categories, err := s.ListCategories(t.Context(), user)
			require.NoError(t, err)
			require.Len(t, categories, 1)

			err = s.DeleteCategory(t.Context(), user, category.ID)
			require.NoError(t, err)

			err = s.DeleteCategory(t.Context(), user, category.ID)
			require.ErrorIs(t, err, apperrors.ErrCategoryNotFound)
		})
	})
}
