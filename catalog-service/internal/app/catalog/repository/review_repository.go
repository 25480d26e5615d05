package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает репозиторий отзывов (GORM)
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create создает отзыв
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// GetByID получает отзыв по ID независимо от видимости
func (r *reviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	result := r.db.WithContext(ctx).First(&review, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", result.Error)
	}

	return &review, nil
}

// GetByProductID возвращает отзывы товара; скрытые только при includeHidden
func (r *reviewRepository) GetByProductID(ctx context.Context, productID uuid.UUID, includeHidden bool) ([]entity.Review, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if !includeHidden {
		query = query.Where("hidden = ?", false)
	}

	reviews := make([]entity.Review, 0)
	if err := query.Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	return reviews, nil
}

// Update сохраняет оценку и текст. Видимость меняется только через SetHidden.
func (r *reviewRepository) Update(ctx context.Context, review *entity.Review) error {
	result := r.db.WithContext(ctx).Model(&entity.Review{}).Where("id = ?", review.ID).Updates(map[string]interface{}{
		"rating": review.Rating,
		"text":   review.Text,
	})

	if result.Error != nil {
		return fmt.Errorf("failed to update review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// SetHidden скрывает или возвращает отзыв
func (r *reviewRepository) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	result := r.db.WithContext(ctx).Model(&entity.Review{}).Where("id = ?", id).Update("hidden", hidden)

	if result.Error != nil {
		return fmt.Errorf("failed to set review visibility: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// Delete удаляет отзыв вместе с реакциями на него (каскад)
func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Review{}, "id = ?", id)

	if result.Error != nil {
		return fmt.Errorf("failed to delete review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// GetVisibleRatings возвращает оценки нескрытых отзывов товара
func (r *reviewRepository) GetVisibleRatings(ctx context.Context, productID uuid.UUID) ([]float64, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "reviews")

	ratings := make([]float64, 0)
	err := r.db.WithContext(ctx).
		Model(&entity.Review{}).
		Where("product_id = ? AND hidden = ?", productID, false).
		Pluck("rating", &ratings).Error
	timer.Done(err)

	if err != nil {
		return nil, fmt.Errorf("failed to get review ratings: %w", err)
	}

	return ratings, nil
}
