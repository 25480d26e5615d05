package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/google/uuid"
)

// ReactionService переключает лайки/дизлайки товаров и отзывов.
// Списочный кеш здесь не сбрасывается: счётчики в списке могут отставать до истечения TTL.
type ReactionService struct {
	userRepo         repository.UserRepository     // Справочник пользователей (таблица Auth Service)
	productRepo      repository.ProductRepository  // Перечитывание товара после переключения
	reviewRepo       repository.ReviewRepository   // Перечитывание отзыва после переключения
	productReactions repository.ReactionRepository // Рёбра product_reactions
	reviewReactions  repository.ReactionRepository // Рёбра review_reactions
}

// NewReactionService создает сервис реакций с внедрением зависимостей
func NewReactionService(
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	reviewRepo repository.ReviewRepository,
	productReactions repository.ReactionRepository,
	reviewReactions repository.ReactionRepository,
) *ReactionService {
	return &ReactionService{
		userRepo:         userRepo,
		productRepo:      productRepo,
		reviewRepo:       reviewRepo,
		productReactions: productReactions,
		reviewReactions:  reviewReactions,
	}
}

// ToggleProductReaction применяет реакцию пользователя к товару и
// возвращает товар с обновлёнными счётчиками
func (s *ReactionService) ToggleProductReaction(ctx context.Context, productID, userID uuid.UUID, kind entity.ReactionKind) (*entity.Product, error) {
	if err := s.toggle(ctx, entity.KindProduct, s.productReactions, productID, userID, kind); err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	// Отдаём сущность из БД, а не из памяти: счётчики уже записаны транзакцией
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return product, nil
}

// ToggleReviewReaction - то же для отзыва
func (s *ReactionService) ToggleReviewReaction(ctx context.Context, reviewID, userID uuid.UUID, kind entity.ReactionKind) (*entity.Review, error) {
	if err := s.toggle(ctx, entity.KindReview, s.reviewReactions, reviewID, userID, kind); err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to reload review: %w", err)
	}
	return review, nil
}

// LikeProduct, DislikeProduct, LikeReview, DislikeReview - переключение с фиксированным видом реакции.
// Повторный лайк снимает лайк, дизлайк поверх лайка заменяет его.
func (s *ReactionService) LikeProduct(ctx context.Context, productID, userID uuid.UUID) (*entity.Product, error) {
	return s.ToggleProductReaction(ctx, productID, userID, entity.ReactionLike)
}

func (s *ReactionService) DislikeProduct(ctx context.Context, productID, userID uuid.UUID) (*entity.Product, error) {
	return s.ToggleProductReaction(ctx, productID, userID, entity.ReactionDislike)
}

func (s *ReactionService) LikeReview(ctx context.Context, reviewID, userID uuid.UUID) (*entity.Review, error) {
	return s.ToggleReviewReaction(ctx, reviewID, userID, entity.ReactionLike)
}

func (s *ReactionService) DislikeReview(ctx context.Context, reviewID, userID uuid.UUID) (*entity.Review, error) {
	return s.ToggleReviewReaction(ctx, reviewID, userID, entity.ReactionDislike)
}

// toggle - общая часть для товаров и отзывов: проверки, транзакция в репозитории, метрика.
// Ошибки не повторяются, вызывающий получает их как есть.
func (s *ReactionService) toggle(ctx context.Context, target entity.EntityKind, repo repository.ReactionRepository, entityID, userID uuid.UUID, kind entity.ReactionKind) error {
	// Проверяем вид реакции до любых обращений к БД
	if !kind.Valid() {
		return ErrInvalidReactionKind
	}

	// Пользователь должен существовать в справочнике
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	// Рёбра и счётчики меняются одной транзакцией под блокировкой строки сущности
	outcome, err := repo.Toggle(ctx, entityID, userID, kind)
	if err != nil {
		metrics.RecordReactionToggle(string(target), string(kind), "failed")
		return fmt.Errorf("failed to toggle %s reaction: %w", target, err)
	}

	metrics.RecordReactionToggle(string(target), string(kind), string(outcome.Change))
	logger.Debug().
		Str("entity", string(target)).
		Str("entity_id", entityID.String()).
		Str("user_id", userID.String()).
		Str("kind", string(kind)).
		Str("change", string(outcome.Change)).
		Msg("reaction toggled")

	return nil
}
