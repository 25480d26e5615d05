package repository

import (
	"context"
	"errors"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/reaction"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const serviceName = "catalog-service"

// Ошибки репозиториев; service layer сопоставляет их со своими
var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategoryHasProducts   = errors.New("cannot delete category with existing products")
	ErrProductNotFound       = errors.New("product not found")
	ErrReviewNotFound        = errors.New("review not found")
	ErrUserNotFound          = errors.New("user not found")
	// ErrEntityNotFound - целевая сущность реакции (товар или отзыв) не найдена
	ErrEntityNotFound = errors.New("entity not found")
)

// DBTX - общий интерфейс pgxpool.Pool и pgx.Tx (и pgxmock в тестах)
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CategoryRepository - категории каталога (pgx)
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductRepository - товары каталога (GORM)
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetAll(ctx context.Context) ([]entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// UpdateRatingStats записывает производные поля рейтинга
	UpdateRatingStats(ctx context.Context, id uuid.UUID, reviewsCount int, averageRating float64) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ReviewRepository - отзывы о товарах (GORM)
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	GetByProductID(ctx context.Context, productID uuid.UUID, includeHidden bool) ([]entity.Review, error)
	Update(ctx context.Context, review *entity.Review) error
	SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	// GetVisibleRatings возвращает оценки всех нескрытых отзывов товара
	GetVisibleRatings(ctx context.Context, productID uuid.UUID) ([]float64, error)
}

// CounterUpdate - новые значения производных полей одной сущности
type CounterUpdate struct {
	EntityID  uuid.UUID
	Reactions entity.Reactions
	Version   int64 // версия из снимка; запись применяется только если она не изменилась
}

// ReactionRepository хранит рёбра реакций одного вида сущностей (товаров или отзывов)
type ReactionRepository interface {
	// Toggle переключает реакцию пользователя в одной транзакции,
	// строка сущности блокируется на время чтения-изменения-записи
	Toggle(ctx context.Context, entityID, userID uuid.UUID, kind entity.ReactionKind) (reaction.Outcome, error)
	// FindAllWithEdges загружает все сущности вида вместе с рёбрами (только для сверки)
	FindAllWithEdges(ctx context.Context) ([]reaction.Snapshot, error)
	// SaveCounters сохраняет пачку счётчиков одной транзакцией с проверкой версии,
	// возвращает число переписанных сущностей
	SaveCounters(ctx context.Context, updates []CounterUpdate) (int, error)
}

// UserRepository - справочник пользователей
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}
