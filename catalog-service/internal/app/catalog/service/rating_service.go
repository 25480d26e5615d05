package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/pkg/metrics"

	"github.com/google/uuid"
)

// RatingStats - агрегат по видимым отзывам товара
type RatingStats struct {
	ReviewsCount  int     // Количество нескрытых отзывов
	AverageRating float64 // Среднее по ним, 0 если отзывов нет
}

// ComputeRatingStats считает количество и среднее; для пустого набора оба поля нулевые
func ComputeRatingStats(ratings []float64) RatingStats {
	if len(ratings) == 0 {
		return RatingStats{}
	}

	var sum float64
	for _, r := range ratings {
		sum += r
	}

	return RatingStats{
		ReviewsCount:  len(ratings),
		AverageRating: sum / float64(len(ratings)),
	}
}

// RatingService пересчитывает reviews_count и average_rating товара
// целиком по текущему набору нескрытых отзывов (без инкрементов)
type RatingService struct {
	reviewRepo  repository.ReviewRepository  // Источник оценок
	productRepo repository.ProductRepository // Куда пишутся reviews_count/average_rating
}

// NewRatingService создает сервис пересчёта рейтинга
func NewRatingService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository) *RatingService {
	return &RatingService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
	}
}

// RecomputeProductStats перечитывает все видимые оценки товара и перезаписывает агрегат.
// Вызывается после записи отзыва, из consumer'а review_events и из сверки.
// Отсутствующий товар - ErrProductNotFound.
func (s *RatingService) RecomputeProductStats(ctx context.Context, productID uuid.UUID) (err error) {
	defer func() { metrics.RecordRatingRecompute(err) }()

	// Скрытые модератором отзывы в рейтинг не входят
	ratings, err := s.reviewRepo.GetVisibleRatings(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to load ratings: %w", err)
	}

	stats := ComputeRatingStats(ratings)

	// Перезаписываем оба поля целиком, без инкрементов

	if err := s.productRepo.UpdateRatingStats(ctx, productID, stats.ReviewsCount, stats.AverageRating); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to save rating stats: %w", err)
	}

	return nil
}
