package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
)

type CredentialRepo struct {
	DB DBTX
}

const createCredential = `-- name: CreateCredential
INSERT INTO credentials (id, user_id, name, secret, url, notes, category_id, strength_score)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, user_id, name, secret, url, notes, category_id, strength_score
`

func (r *CredentialRepo) CreateCredential(ctx context.Context, cred models.Credential) (models.Credential, error) {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createCredential,
		cred.ID, cred.UserID, cred.Name, cred.Secret, cred.URL, cred.Notes, cred.CategoryID, cred.StrengthScore)
	saved, err := pgx.CollectOneRow(rows, rowToCredential)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getCredential = `-- name: getCredential
SELECT id, created_at, user_id, name, secret, url, notes, category_id, strength_score
FROM credentials
WHERE id = $1
`

func (r *CredentialRepo) GetCredential(ctx context.Context, id uuid.UUID) (models.Credential, error) {
	rows, _ := r.DB.Query(ctx, getCredential, id)
	cred, err := pgx.CollectOneRow(rows, rowToCredential)

	switch {
	case err == nil:
		return cred, nil
	case errors.Is(err, pgx.ErrNoRows):
		return cred, apperrors.ErrCredentialNotFound
	default:
		return cred, fmt.Errorf("db error: %w", err)
	}
}

const listCredentialsByUser = `-- name: listCredentialsByUser
SELECT id, created_at, user_id, name, secret, url, notes, category_id, strength_score
FROM credentials
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *CredentialRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Credential, error) {
	rows, _ := r.DB.Query(ctx, listCredentialsByUser, userID)
	creds, err := pgx.CollectRows(rows, rowToCredential)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return creds, nil
}

const updateCredential = `-- name: updateCredential
UPDATE credentials
SET name = $2, secret = $3, url = $4, notes = $5, category_id = $6, strength_score = $7
WHERE id = $1
RETURNING id, created_at, user_id, name, secret, url, notes, category_id, strength_score
`

func (r *CredentialRepo) UpdateCredential(ctx context.Context, cred models.Credential) (models.Credential, error) {
	rows, _ := r.DB.Query(ctx, updateCredential,
		cred.ID, cred.Name, cred.Secret, cred.URL, cred.Notes, cred.CategoryID, cred.StrengthScore)
	saved, err := pgx.CollectOneRow(rows, rowToCredential)

	switch {
	case err == nil:
		return saved, nil
	case errors.Is(err, pgx.ErrNoRows):
		return saved, apperrors.ErrCredentialNotFound
	default:
		return saved, fmt.Errorf("db error: %w", err)
	}
}

const deleteCredential = `-- name: deleteCredential
DELETE FROM credentials
WHERE id = $1
`

func (r *CredentialRepo) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteCredential, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCredentialNotFound
	}

	return nil
}

func rowToCredential(row pgx.CollectableRow) (models.Credential, error) {
	var c models.Credential
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UserID, &c.Name, &c.Secret, &c.URL, &c.Notes, &c.CategoryID, &c.StrengthScore)
	return c, err
}
