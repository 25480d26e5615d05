package service

import (
	"context"

	"storefront/catalog-service/internal/app/catalog/entity"

	"github.com/google/uuid"
)

type CatalogServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetAllProducts(ctx context.Context) ([]entity.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *entity.UpdateProductRequest) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type ReactionServiceInterface interface {
	ToggleProductReaction(ctx context.Context, productID, userID uuid.UUID, kind entity.ReactionKind) (*entity.Product, error)
	ToggleReviewReaction(ctx context.Context, reviewID, userID uuid.UUID, kind entity.ReactionKind) (*entity.Review, error)
	LikeProduct(ctx context.Context, productID, userID uuid.UUID) (*entity.Product, error)
	DislikeProduct(ctx context.Context, productID, userID uuid.UUID) (*entity.Product, error)
	LikeReview(ctx context.Context, reviewID, userID uuid.UUID) (*entity.Review, error)
	DislikeReview(ctx context.Context, reviewID, userID uuid.UUID) (*entity.Review, error)
}

type ReviewServiceInterface interface {
	CreateReview(ctx context.Context, userID uuid.UUID, req *entity.CreateReviewRequest) (*entity.Review, error)
	GetReview(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	GetReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]entity.Review, error)
	UpdateReview(ctx context.Context, id, userID uuid.UUID, req *entity.UpdateReviewRequest) (*entity.Review, error)
	DeleteReview(ctx context.Context, id, userID uuid.UUID, isAdmin bool) error
	SetReviewHidden(ctx context.Context, id uuid.UUID, hidden bool) (*entity.Review, error)
}

// RatingServiceInterface - пересчёт reviews_count/average_rating товара
type RatingServiceInterface interface {
	RecomputeProductStats(ctx context.Context, productID uuid.UUID) error
}

type ReconcileServiceInterface interface {
	Reconcile(ctx context.Context) (*entity.ReconcileReport, error)
}
