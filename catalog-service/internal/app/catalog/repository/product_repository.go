package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает репозиторий товаров (GORM)
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create создает товар. Связанную категорию GORM не трогает.
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	if err := r.db.WithContext(ctx).Omit("Category").Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID загружает товар вместе с категорией
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	var product entity.Product
	result := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", result.Error)
	}

	return &product, nil
}

// GetAll возвращает все товары, новые первыми
func (r *productRepository) GetAll(ctx context.Context) ([]entity.Product, error) {
	products := make([]entity.Product, 0)
	if err := r.db.WithContext(ctx).Preload("Category").Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// Update меняет только редактируемые поля. Счётчики реакций и рейтинг
// сюда не входят: их пишут ReactionRepository и UpdateRatingStats.
func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	result := r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"category_id": product.CategoryID,
	})

	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete удаляет товар. Отзывы и реакции удаляются каскадом (ON DELETE CASCADE).
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Product{}, "id = ?", id)

	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpdateRatingStats записывает количество видимых отзывов и средний рейтинг
func (r *productRepository) UpdateRatingStats(ctx context.Context, id uuid.UUID, reviewsCount int, averageRating float64) error {
	result := r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"reviews_count":  reviewsCount,
		"average_rating": averageRating,
	})

	if result.Error != nil {
		return fmt.Errorf("failed to update product rating stats: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ListIDs возвращает ID всех товаров для фонового пересчёта рейтингов
func (r *productRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&entity.Product{}).Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list product ids: %w", err)
	}
	return ids, nil
}
