package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/reaction"
	"storefront/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionTarget описывает, где лежат сущность и её рёбра.
// Алгоритм один, различаются только таблицы.
type ReactionTarget struct {
	Kind       entity.EntityKind
	Table      string // таблица сущности со счётчиками
	EdgeTable  string // таблица рёбер, PK (ForeignKey, user_id)
	ForeignKey string
}

var (
	ProductReactions = ReactionTarget{
		Kind:       entity.KindProduct,
		Table:      "products",
		EdgeTable:  "product_reactions",
		ForeignKey: "product_id",
	}
	ReviewReactions = ReactionTarget{
		Kind:       entity.KindReview,
		Table:      "reviews",
		EdgeTable:  "review_reactions",
		ForeignKey: "review_id",
	}
)

type edgeRow struct {
	EntityID uuid.UUID `gorm:"column:entity_id"`
	UserID   uuid.UUID `gorm:"column:user_id"`
	Kind     string    `gorm:"column:kind"`
}

type counterRow struct {
	ID            uuid.UUID `gorm:"column:id"`
	LikesCount    int       `gorm:"column:likes_count"`
	DislikesCount int       `gorm:"column:dislikes_count"`
	IsBestRated   bool      `gorm:"column:is_best_rated"`
	IsWorstRated  bool      `gorm:"column:is_worst_rated"`
	Version       int64     `gorm:"column:version"`
}

type reactionRepository struct {
	db     *gorm.DB
	target ReactionTarget

	lockSQL       string
	edgesSQL      string
	allEdgesSQL   string
	allCountSQL   string
	deleteEdgeSQL string
	insertEdgeSQL string
	countersSQL   string
	reconcileSQL  string // запись счётчиков сверки, только если версия не сдвинулась
}

func NewReactionRepository(db *gorm.DB, target ReactionTarget) ReactionRepository {
	return &reactionRepository{
		db:     db,
		target: target,

		lockSQL:       fmt.Sprintf("SELECT id FROM %s WHERE id = ? FOR UPDATE", target.Table),
		edgesSQL:      fmt.Sprintf("SELECT %s AS entity_id, user_id, kind FROM %s WHERE %s = ?", target.ForeignKey, target.EdgeTable, target.ForeignKey),
		allEdgesSQL:   fmt.Sprintf("SELECT %s AS entity_id, user_id, kind FROM %s", target.ForeignKey, target.EdgeTable),
		allCountSQL:   fmt.Sprintf("SELECT id, likes_count, dislikes_count, is_best_rated, is_worst_rated, version FROM %s ORDER BY id", target.Table),
		deleteEdgeSQL: fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND user_id = ?", target.EdgeTable, target.ForeignKey),
		insertEdgeSQL: fmt.Sprintf("INSERT INTO %s (%s, user_id, kind, created_at) VALUES (?, ?, ?, ?)", target.EdgeTable, target.ForeignKey),
		countersSQL:   fmt.Sprintf("UPDATE %s SET likes_count = ?, dislikes_count = ?, is_best_rated = ?, is_worst_rated = ?, version = version + 1 WHERE id = ?", target.Table),
		reconcileSQL:  fmt.Sprintf("UPDATE %s SET likes_count = ?, dislikes_count = ?, is_best_rated = ?, is_worst_rated = ?, version = version + 1 WHERE id = ? AND version = ?", target.Table),
	}
}

// Toggle выполняет чтение-изменение-запись только для одной сущности.
// SELECT ... FOR UPDATE сериализует параллельные переключения на этой сущности,
// поэтому потерянных обновлений нет, а конфликт версий не возникает.
func (r *reactionRepository) Toggle(ctx context.Context, entityID, userID uuid.UUID, kind entity.ReactionKind) (reaction.Outcome, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpToggle, r.target.EdgeTable)

	var outcome reaction.Outcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lockedID uuid.UUID
		if err := tx.Raw(r.lockSQL, entityID).Row().Scan(&lockedID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEntityNotFound
			}
			return fmt.Errorf("failed to lock %s: %w", r.target.Kind, err)
		}

		edges, err := r.loadEdges(tx, entityID)
		if err != nil {
			return err
		}

		next, out := reaction.Toggle(edges, userID, kind)

		// сначала удаление: PK (entity, user) не допускает двух рёбер
		if out.Removed != nil {
			if err := tx.Exec(r.deleteEdgeSQL, entityID, out.Removed.UserID).Error; err != nil {
				return fmt.Errorf("failed to delete reaction: %w", err)
			}
		}
		if out.Added != nil {
			if err := tx.Exec(r.insertEdgeSQL, entityID, out.Added.UserID, string(out.Added.Kind), time.Now()).Error; err != nil {
				return fmt.Errorf("failed to insert reaction: %w", err)
			}
		}

		if err := r.writeCounters(tx, entityID, reaction.Recount(next)); err != nil {
			return err
		}

		outcome = out
		return nil
	})

	if errors.Is(err, ErrEntityNotFound) {
		timer.Done(nil)
		return reaction.Outcome{}, err
	}
	timer.Done(err)
	if err != nil {
		return reaction.Outcome{}, err
	}

	return outcome, nil
}

func (r *reactionRepository) loadEdges(tx *gorm.DB, entityID uuid.UUID) ([]reaction.Edge, error) {
	var rows []edgeRow
	if err := tx.Raw(r.edgesSQL, entityID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load reactions: %w", err)
	}

	edges := make([]reaction.Edge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, reaction.Edge{UserID: row.UserID, Kind: entity.ReactionKind(row.Kind)})
	}
	return edges, nil
}

func (r *reactionRepository) writeCounters(tx *gorm.DB, entityID uuid.UUID, c entity.Reactions) error {
	result := tx.Exec(r.countersSQL, c.LikesCount, c.DislikesCount, c.IsBestRated, c.IsWorstRated, entityID)
	if result.Error != nil {
		return fmt.Errorf("failed to save %s counters: %w", r.target.Kind, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// FindAllWithEdges читает всю таблицу сущностей и всю таблицу рёбер.
// На пути запроса не используется, только в фоновой сверке.
// Счётчики читаются раньше рёбер: любое переключение, закоммиченное после чтения
// счётчиков, сдвигает version, и SaveCounters такую сущность пропустит.
func (r *reactionRepository) FindAllWithEdges(ctx context.Context) ([]reaction.Snapshot, error) {
	db := r.db.WithContext(ctx)

	var counters []counterRow
	if err := db.Raw(r.allCountSQL).Scan(&counters).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s counters: %w", r.target.Kind, err)
	}

	var edges []edgeRow
	if err := db.Raw(r.allEdgesSQL).Scan(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s reactions: %w", r.target.Kind, err)
	}

	byEntity := make(map[uuid.UUID][]reaction.Edge, len(counters))
	for _, e := range edges {
		byEntity[e.EntityID] = append(byEntity[e.EntityID], reaction.Edge{UserID: e.UserID, Kind: entity.ReactionKind(e.Kind)})
	}

	snapshots := make([]reaction.Snapshot, 0, len(counters))
	for _, c := range counters {
		snapshots = append(snapshots, reaction.Snapshot{
			EntityID: c.ID,
			Stored: entity.Reactions{
				LikesCount:    c.LikesCount,
				DislikesCount: c.DislikesCount,
				IsBestRated:   c.IsBestRated,
				IsWorstRated:  c.IsWorstRated,
			},
			Version: c.Version,
			Edges:   byEntity[c.ID],
		})
	}

	return snapshots, nil
}

// SaveCounters пишет пересчитанные счётчики одной транзакцией.
// Каждая строка обновляется только при совпадении version со снимком, поэтому
// переключение, прошедшее между снимком и записью, не затирается.
// Возвращает число реально переписанных сущностей.
func (r *reactionRepository) SaveCounters(ctx context.Context, updates []CounterUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, r.target.Table)

	saved := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		saved = 0
		for _, u := range updates {
			c := u.Reactions
			result := tx.Exec(r.reconcileSQL, c.LikesCount, c.DislikesCount, c.IsBestRated, c.IsWorstRated, u.EntityID, u.Version)
			if result.Error != nil {
				return fmt.Errorf("failed to save %s counters: %w", r.target.Kind, result.Error)
			}
			// 0 строк: сущность удалена или изменена после снимка, следующая сверка её перепроверит
			saved += int(result.RowsAffected)
		}
		return nil
	})
	timer.Done(err)

	if err != nil {
		return 0, err
	}
	return saved, nil
}
