package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

type CategoryRepository interface {
	Create(ctx context.Context, tx *sql.Tx, c *model.Category) error
	FindByID(ctx context.Context, id int64) (*model.Category, error)
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
}

type pgCategoryRepository struct {
	db *sql.DB
}

func NewPgCategoryRepository(db *sql.DB) CategoryRepository {
	return &pgCategoryRepository{db: db}
}

func (r *pgCategoryRepository) Create(ctx context.Context, tx *sql.Tx, c *model.Category) error {
	query := `INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, created_at`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, c.Name, c.Slug)
	} else {
		row = r.db.QueryRowContext(ctx, query, c.Name, c.Slug)
	}
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("category with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgCategoryRepository.Create: %w", common.ClassifyStoreError(err))
	}
	return nil
}

func (r *pgCategoryRepository) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	query := `SELECT id, name, slug, created_at FROM categories WHERE id = $1`
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCategoryRepository.FindByID: %w", common.ClassifyStoreError(err))
	}
	return c, nil
}

func (r *pgCategoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	query := `SELECT id, name, slug, created_at FROM categories WHERE slug = $1`
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCategoryRepository.FindBySlug: %w", common.ClassifyStoreError(err))
	}
	return c, nil
}

func (r *pgCategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	query := `SELECT id, name, slug, created_at FROM categories ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgCategoryRepository.List query: %w", common.ClassifyStoreError(err))
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgCategoryRepository.List scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgCategoryRepository.List rows.Err: %w", common.ClassifyStoreError(err))
	}
	return categories, nil
}
