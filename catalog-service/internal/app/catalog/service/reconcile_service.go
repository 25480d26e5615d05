package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/repository"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ReconcileService - офлайн-сверка: пересчитывает счётчики реакций из рёбер
// и рейтинги всех товаров. Не вызывается на пути запроса.
type ReconcileService struct {
	productReactions repository.ReactionRepository // Рёбра и счётчики реакций на товары
	reviewReactions  repository.ReactionRepository // Рёбра и счётчики реакций на отзывы
	productRepo      repository.ProductRepository
	ratings          RatingServiceInterface
	parallelism      int // Сколько товаров пересчитывается одновременно
}

// NewReconcileService создает сервис сверки; parallelism меньше 1 считается за 1
func NewReconcileService(
	productReactions repository.ReactionRepository,
	reviewReactions repository.ReactionRepository,
	productRepo repository.ProductRepository,
	ratings RatingServiceInterface,
	parallelism int,
) *ReconcileService {
	if parallelism < 1 {
		parallelism = 1
	}
	return &ReconcileService{
		productReactions: productReactions,
		reviewReactions:  reviewReactions,
		productRepo:      productRepo,
		ratings:          ratings,
		parallelism:      parallelism,
	}
}

// Reconcile выполняет полный проход: счётчики товаров, счётчики отзывов, рейтинги
func (s *ReconcileService) Reconcile(ctx context.Context) (report *entity.ReconcileReport, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.ReconcileRuns.WithLabelValues(status).Inc()
	}()

	report = &entity.ReconcileReport{}

	// Шаг 1-2: счётчики реакций из рёбер

	if report.ProductsRepaired, err = s.repairCounters(ctx, entity.KindProduct, s.productReactions); err != nil {
		return nil, err
	}
	if report.ReviewsRepaired, err = s.repairCounters(ctx, entity.KindReview, s.reviewReactions); err != nil {
		return nil, err
	}
	// Шаг 3: рейтинги всех товаров из видимых отзывов
	if report.ProductsRated, err = s.recomputeRatings(ctx); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)

	logger.Info().
		Int("products_repaired", report.ProductsRepaired).
		Int("reviews_repaired", report.ReviewsRepaired).
		Int("products_rated", report.ProductsRated).
		Dur("duration", report.Duration).
		Msg("reconciliation completed")

	return report, nil
}

// repairCounters сравнивает сохранённые счётчики с пересчитанными из рёбер
// и одной транзакцией переписывает разошедшиеся. Сущности, которые успели
// измениться после снимка, не переписываются и в отчёт не попадают.
func (s *ReconcileService) repairCounters(ctx context.Context, kind entity.EntityKind, repo repository.ReactionRepository) (int, error) {
	snapshots, err := repo.FindAllWithEdges(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s reactions: %w", kind, err)
	}

	var updates []repository.CounterUpdate
	for _, snap := range snapshots {
		actual, drifted := snap.Drifted()
		if !drifted {
			continue
		}
		logger.Warn().
			Str("entity", string(kind)).
			Str("entity_id", snap.EntityID.String()).
			Int("stored_likes", snap.Stored.LikesCount).
			Int("actual_likes", actual.LikesCount).
			Int("stored_dislikes", snap.Stored.DislikesCount).
			Int("actual_dislikes", actual.DislikesCount).
			Msg("reaction counters drifted")
		updates = append(updates, repository.CounterUpdate{
			EntityID:  snap.EntityID,
			Reactions: actual,
			Version:   snap.Version,
		})
	}

	if len(updates) == 0 {
		return 0, nil
	}

	saved, err := repo.SaveCounters(ctx, updates)
	if err != nil {
		return 0, fmt.Errorf("failed to save %s counters: %w", kind, err)
	}
	if skipped := len(updates) - saved; skipped > 0 {
		logger.Info().
			Str("entity", string(kind)).
			Int("skipped", skipped).
			Msg("counters changed since snapshot, left for next reconciliation")
	}

	metrics.ReconcileRepaired.WithLabelValues(string(kind)).Add(float64(saved))
	return saved, nil
}

// recomputeRatings пересчитывает рейтинги пулом из parallelism горутин
func (s *ReconcileService) recomputeRatings(ctx context.Context) (int, error) {
	ids, err := s.productRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}

	var rated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for _, id := range ids {
		id := id // копия переменной цикла для go < 1.22
		g.Go(func() error {
			return s.recomputeOne(gctx, id, &rated)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(rated.Load()), nil
}

// recomputeOne пропускает товар, удалённый во время сверки
func (s *ReconcileService) recomputeOne(ctx context.Context, id uuid.UUID, rated *atomic.Int64) error {
	if err := s.ratings.RecomputeProductStats(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil
		}
		return fmt.Errorf("failed to recompute rating for product %s: %w", id, err)
	}
	rated.Add(1)
	return nil
}
