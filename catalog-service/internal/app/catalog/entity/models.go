package entity

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind - тип сущности каталога. Используется в метриках, логах и для выбора ключа кеша.
type EntityKind string

const (
	KindCategory EntityKind = "category"
	KindProduct  EntityKind = "product"
	KindReview   EntityKind = "review"
)

// ReactionKind - лайк или дизлайк
type ReactionKind string

const (
	ReactionLike    ReactionKind = "LIKE"
	ReactionDislike ReactionKind = "DISLIKE"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// Opposite возвращает противоположную реакцию (LIKE <-> DISLIKE)
func (k ReactionKind) Opposite() ReactionKind {
	if k == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}

// Reactions - производные поля реакций, общие для товара и отзыва.
// Никогда не являются источником истины: пересчитываются из таблиц *_reactions.
type Reactions struct {
	LikesCount    int  `json:"likes_count" gorm:"column:likes_count"`
	DislikesCount int  `json:"dislikes_count" gorm:"column:dislikes_count"`
	IsBestRated   bool `json:"is_best_rated" gorm:"column:is_best_rated"`
	IsWorstRated  bool `json:"is_worst_rated" gorm:"column:is_worst_rated"`
}

// Category представляет категорию товаров
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Product - товар каталога. ReviewsCount/AverageRating пересчитываются по видимым отзывам.
type Product struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string    `json:"name" gorm:"column:name"`
	Description   string    `json:"description" gorm:"column:description"`
	Price         float64   `json:"price" gorm:"column:price"`
	CategoryID    uuid.UUID `json:"category_id" gorm:"type:uuid;column:category_id"`
	ReviewsCount  int       `json:"reviews_count" gorm:"column:reviews_count"`
	AverageRating float64   `json:"average_rating" gorm:"column:average_rating"`
	Reactions     `gorm:"embedded"`
	Version       int64     `json:"version" gorm:"column:version"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"column:updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

func (Product) TableName() string {
	return "products"
}

// Review - отзыв на товар. Hidden-отзывы не участвуют в рейтинге товара.
type Review struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;column:product_id"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;column:user_id"`
	Rating    float64   `json:"rating" gorm:"column:rating"` // 1.0 - 5.0, один знак после запятой
	Text      string    `json:"text" gorm:"column:text"`
	Hidden    bool      `json:"hidden" gorm:"column:hidden"`
	Reactions `gorm:"embedded"`
	Version   int64     `json:"version" gorm:"column:version"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// User - запись справочника пользователей (таблица users принадлежит Auth Service)
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	RoleID    int       `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	EventReviewCreated = "REVIEW_CREATED"
	EventReviewUpdated = "REVIEW_UPDATED"
	EventReviewDeleted = "REVIEW_DELETED"
	EventReviewHidden  = "REVIEW_VISIBILITY_CHANGED"
)

// ReviewEvent публикуется в review_events. Consumer этого же сервиса
// пересчитывает по нему рейтинг товара.
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	ReviewID  uuid.UUID `json:"review_id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    float64   `json:"rating"`
	Hidden    bool      `json:"hidden"`
	Timestamp time.Time `json:"timestamp"`
}

// ReconcileReport - итог полной сверки
type ReconcileReport struct {
	ProductsRepaired int           `json:"products_repaired"`
	ReviewsRepaired  int           `json:"reviews_repaired"`
	ProductsRated    int           `json:"products_rated"`
	Duration         time.Duration `json:"duration"`
}
