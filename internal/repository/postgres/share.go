package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
)

type ShareRepo struct {
	DB DBTX
}

const createShare = `-- name: CreateShare
INSERT INTO shares (id, credential_id, owner_id, recipient_id, access_token, accepted, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, credential_id, owner_id, recipient_id, access_token, accepted, expires_at
`

func (r *ShareRepo) CreateShare(ctx context.Context, grant models.ShareGrant) (models.ShareGrant, error) {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createShare,
		grant.ID, grant.CredentialID, grant.OwnerID, grant.RecipientID, grant.AccessToken, grant.Accepted, grant.ExpiresAt)
	saved, err := pgx.CollectOneRow(rows, rowToShare)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getShare = `-- name: getShare
SELECT id, created_at, credential_id, owner_id, recipient_id, access_token, accepted, expires_at
FROM shares
WHERE id = $1
`

func (r *ShareRepo) GetShare(ctx context.Context, id uuid.UUID) (models.ShareGrant, error) {
	rows, _ := r.DB.Query(ctx, getShare, id)
	grant, err := pgx.CollectOneRow(rows, rowToShare)

	switch {
	case err == nil:
		return grant, nil
	case errors.Is(err, pgx.ErrNoRows):
		return grant, apperrors.ErrShareNotFound
	default:
		return grant, fmt.Errorf("db error: %w", err)
	}
}

const markShareAccepted = `-- name: markShareAccepted
UPDATE shares
SET accepted = true
WHERE id = $1
RETURNING id, created_at, credential_id, owner_id, recipient_id, access_token, accepted, expires_at
`

func (r *ShareRepo) MarkAccepted(ctx context.Context, id uuid.UUID) (models.ShareGrant, error) {
	rows, _ := r.DB.Query(ctx, markShareAccepted, id)
	grant, err := pgx.CollectOneRow(rows, rowToShare)

	switch {
	case err == nil:
		return grant, nil
	case errors.Is(err, pgx.ErrNoRows):
		return grant, apperrors.ErrShareNotFound
	default:
		return grant, fmt.Errorf("db error: %w", err)
	}
}

const deleteShare = `-- name: deleteShare
DELETE FROM shares
WHERE id = $1
`

func (r *ShareRepo) DeleteShare(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteShare, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrShareNotFound
	}

	return nil
}

const listSharesByCredential = `-- name: listSharesByCredential
SELECT id, created_at, credential_id, owner_id, recipient_id, access_token, accepted, expires_at
FROM shares
WHERE credential_id = $1
ORDER BY created_at
`

func (r *ShareRepo) ListByCredential(ctx context.Context, credentialID uuid.UUID) ([]models.ShareGrant, error) {
	return r.list(ctx, listSharesByCredential, credentialID)
}

const listSharesByOwner = `-- name: listSharesByOwner
SELECT id, created_at, credential_id, owner_id, recipient_id, access_token, accepted, expires_at
FROM shares
WHERE owner_id = $1
ORDER BY created_at
`

func (r *ShareRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ShareGrant, error) {
	return r.list(ctx, listSharesByOwner, ownerID)
}

const listSharesByRecipient = `-- name: listSharesByRecipient
SELECT id, created_at, credential_id, owner_id, recipient_id, access_token, accepted, expires_at
FROM shares
WHERE recipient_id = $1
ORDER BY created_at
`

func (r *ShareRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.ShareGrant, error) {
	return r.list(ctx, listSharesByRecipient, recipientID)
}

const countActiveSharesByOwner = `-- name: countActiveSharesByOwner
SELECT count(*)
FROM shares
WHERE owner_id = $1 AND expires_at > $2
`

func (r *ShareRepo) CountActiveByOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, countActiveSharesByOwner, ownerID, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *ShareRepo) list(ctx context.Context, sql string, arg any) ([]models.ShareGrant, error) {
	rows, _ := r.DB.Query(ctx, sql, arg)
	grants, err := pgx.CollectRows(rows, rowToShare)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return grants, nil
}

func rowToShare(row pgx.CollectableRow) (models.ShareGrant, error) {
	var g models.ShareGrant
	err := row.Scan(&g.ID, &g.CreatedAt, &g.CredentialID, &g.OwnerID, &g.RecipientID, &g.AccessToken, &g.Accepted, &g.ExpiresAt)
	return g, err
}
