package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/passkeeper/internal/apperrors"
	"github.com/nkiryanov/passkeeper/internal/models"
)

type CategoryRepo struct {
	DB DBTX
}

const createCategory = `-- name: CreateCategory
INSERT INTO categories (id, user_id, name)
VALUES ($1, $2, $3)
RETURNING id, created_at, user_id, name
`

func (r *CategoryRepo) CreateCategory(ctx context.Context, userID uuid.UUID, name string) (models.Category, error) {
	rows, _ := r.DB.Query(ctx, createCategory, uuid.New(), userID, name)
	category, err := pgx.CollectOneRow(rows, rowToCategory)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return category, apperrors.ErrCategoryExists
		}

		return category, fmt.Errorf("db error: %w", err)
	}

	return category, nil
}

const listCategoriesByUser = `-- name: listCategoriesByUser
SELECT id, created_at, user_id, name
FROM categories
WHERE user_id = $1
ORDER BY name
`

func (r *CategoryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	rows, _ := r.DB.Query(ctx, listCategoriesByUser, userID)
	categories, err := pgx.CollectRows(rows, rowToCategory)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return categories, nil
}

const deleteCategory = `-- name: deleteCategory
DELETE FROM categories
WHERE id = $1 AND user_id = $2
`

func (r *CategoryRepo) DeleteCategory(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteCategory, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCategoryNotFound
	}

	return nil
}

func rowToCategory(row pgx.CollectableRow) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UserID, &c.Name)
	return c, err
}
