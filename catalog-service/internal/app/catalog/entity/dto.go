package entity

import "github.com/google/uuid"

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type CreateProductRequest struct {
	Name        string    `json:"name" validate:"required,min=2,max=200"`
	Description string    `json:"description" validate:"required,min=10,max=2000"`
	Price       float64   `json:"price" validate:"required,gt=0"`
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
}

type UpdateProductRequest struct {
	Name        string    `json:"name" validate:"omitempty,min=2,max=200"`
	Description string    `json:"description" validate:"omitempty,min=10,max=2000"`
	Price       float64   `json:"price" validate:"omitempty,gt=0"`
	CategoryID  uuid.UUID `json:"category_id" validate:"omitempty"`
}

type CreateReviewRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Rating    float64   `json:"rating" validate:"required,min=1,max=5"`
	Text      string    `json:"text" validate:"required,min=10,max=1000"`
}

type UpdateReviewRequest struct {
	Rating float64 `json:"rating" validate:"omitempty,min=1,max=5"`
	Text   string  `json:"text" validate:"omitempty,min=10,max=1000"`
}

// SetReviewVisibilityRequest - модерация: скрыть/показать отзыв
type SetReviewVisibilityRequest struct {
	Hidden *bool `json:"hidden" validate:"required"`
}

type ToggleReactionRequest struct {
	Kind ReactionKind `json:"kind" validate:"required,oneof=LIKE DISLIKE"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type CategoryListResponse struct {
	Categories []Category `json:"categories"`
	Total      int        `json:"total"`
}

type ReviewListResponse struct {
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
}
