package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/reaction"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/catalog-service/internal/app/catalog/util"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/google/uuid"
)

// ReviewService - жизненный цикл отзывов. После каждой записи, влияющей
// на видимые оценки, синхронно пересчитывает рейтинг товара. Ошибка пересчёта
// не откатывает запись: её доводит consumer review_events и ночная сверка.
type ReviewService struct {
	reviewRepo    repository.ReviewRepository  // Отзывы в PostgreSQL
	productRepo   repository.ProductRepository // Проверка существования товара
	userRepo      repository.UserRepository    // Проверка существования автора
	ratings       RatingServiceInterface       // Пересчёт рейтинга товара
	kafkaProducer util.MessagePublisher        // Producer для событий review_events
}

// NewReviewService создает сервис отзывов с внедрением зависимостей
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	ratings RatingServiceInterface,
	kafkaProducer util.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		reviewRepo:    reviewRepo,
		productRepo:   productRepo,
		userRepo:      userRepo,
		ratings:       ratings,
		kafkaProducer: kafkaProducer,
	}
}

// CreateReview создает отзыв, пересчитывает рейтинг товара и публикует REVIEW_CREATED
func (s *ReviewService) CreateReview(ctx context.Context, userID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error) {
	// Автор должен быть в справочнике пользователей
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	// Отзыв на несуществующий товар не принимаем
	if _, err := s.productRepo.GetByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to verify product: %w", err)
	}

	now := time.Now()
	review := &entity.Review{
		ID:        uuid.New(),
		ProductID: req.ProductID,
		UserID:    userID,
		Rating:    roundRating(req.Rating),
		Text:      req.Text,
		Reactions: reaction.Derive(0, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	// Бизнес-метрики: количество отзывов и распределение оценок
	metrics.ReviewsCreated.Inc()
	metrics.ReviewsRating.Observe(review.Rating)

	// Отзыв уже сохранён, ошибки пересчёта и публикации только логируются
	s.refreshProductStats(ctx, review.ProductID)
	s.publishReviewEvent(ctx, entity.EventReviewCreated, review)

	return review, nil
}

// GetReview получает отзыв по ID, включая скрытые
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// GetReviewsByProduct возвращает только видимые отзывы
func (s *ReviewService) GetReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]entity.Review, error) {
	reviews, err := s.reviewRepo.GetByProductID(ctx, productID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	return reviews, nil
}

// UpdateReview доступен только автору. Рейтинг товара пересчитывается,
// если изменилась оценка видимого отзыва.
func (s *ReviewService) UpdateReview(ctx context.Context, id, userID uuid.UUID, req *entity.UpdateReviewRequest) (*entity.Review, error) {
	review, err := s.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}

	if review.UserID != userID {
		return nil, ErrForbidden
	}

	// Частичное обновление: пустые поля запроса не трогаются
	oldRating := review.Rating
	if req.Rating > 0 {
		review.Rating = roundRating(req.Rating)
	}
	if req.Text != "" {
		review.Text = req.Text
	}
	review.UpdatedAt = time.Now()

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	// Скрытый отзыв в рейтинге не участвует, смена его оценки ничего не меняет
	if review.Rating != oldRating && !review.Hidden {
		s.refreshProductStats(ctx, review.ProductID)
	}
	s.publishReviewEvent(ctx, entity.EventReviewUpdated, review)

	return review, nil
}

// DeleteReview разрешён автору и администратору.
// Пересчёт идёт строго после удаления, иначе удалённая оценка попадёт в среднее.
func (s *ReviewService) DeleteReview(ctx context.Context, id, userID uuid.UUID, isAdmin bool) error {
	review, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}

	if review.UserID != userID && !isAdmin {
		return ErrForbidden
	}

	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}

	s.refreshProductStats(ctx, review.ProductID)
	s.publishReviewEvent(ctx, entity.EventReviewDeleted, review)

	return nil
}

// SetReviewHidden - модерация. Скрытый отзыв выпадает из рейтинга товара.
func (s *ReviewService) SetReviewHidden(ctx context.Context, id uuid.UUID, hidden bool) (*entity.Review, error) {
	review, err := s.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}

	// Повторная установка того же состояния: без пересчёта и без события
	if review.Hidden == hidden {
		return review, nil
	}

	if err := s.reviewRepo.SetHidden(ctx, id, hidden); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to change review visibility: %w", err)
	}
	review.Hidden = hidden

	s.refreshProductStats(ctx, review.ProductID)
	s.publishReviewEvent(ctx, entity.EventReviewHidden, review)

	return review, nil
}

// refreshProductStats - синхронный пересчёт после записи; ошибка логируется и считается в метриках
func (s *ReviewService) refreshProductStats(ctx context.Context, productID uuid.UUID) {
	if err := s.ratings.RecomputeProductStats(ctx, productID); err != nil {
		logger.Error().
			Err(err).
			Str("product_id", productID.String()).
			Msg("failed to recompute product rating")
	}
}

// publishReviewEvent - best effort, ключ сообщения = ProductID,
// чтобы события одного товара шли в одну партицию
func (s *ReviewService) publishReviewEvent(ctx context.Context, eventType string, review *entity.Review) {
	event := entity.ReviewEvent{
		EventType: eventType,
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Hidden:    review.Hidden,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal review event")
		return
	}

	if err := s.kafkaProducer.PublishMessage(ctx, event.ProductID.String(), data); err != nil {
		logger.Warn().
			Err(err).
			Str("event_type", eventType).
			Str("review_id", review.ID.String()).
			Msg("failed to publish review event")
	}
}

// roundRating оставляет один знак после запятой
func roundRating(r float64) float64 {
	return math.Round(r*10) / 10
}
