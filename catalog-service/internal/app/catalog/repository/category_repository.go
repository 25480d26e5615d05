package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository создает репозиторий категорий поверх pgx
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create создает категорию; дубликат имени возвращает ErrCategoryAlreadyExists
func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	query := `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, category.ID, category.Name, category.CreatedAt); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID получает категорию по ID
func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	query := `SELECT id, name, created_at FROM categories WHERE id = $1`

	var category entity.Category
	err := r.db.QueryRow(ctx, query, id).Scan(&category.ID, &category.Name, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}

	return &category, nil
}

// GetAll возвращает категории по алфавиту. Результат кешируется в service layer.
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	query := `SELECT id, name, created_at FROM categories ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := make([]entity.Category, 0)
	for rows.Next() {
		var category entity.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Update переименовывает категорию
func (r *categoryRepository) Update(ctx context.Context, category *entity.Category) error {
	query := `UPDATE categories SET name = $1 WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, category.Name, category.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// Delete удаляет категорию, только если в ней нет товаров
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Сначала проверяем, что в категории нет товаров
	var productCount int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&productCount); err != nil {
		return fmt.Errorf("failed to check products in category: %w", err)
	}
	if productCount > 0 {
		return ErrCategoryHasProducts
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		// товар мог появиться между проверкой и удалением
		if isPgError(err, pgForeignKeyViolation) {
			return ErrCategoryHasProducts
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// isPgError проверяет SQLSTATE ошибки PostgreSQL
func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
