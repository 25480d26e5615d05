package service

import "errors"

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategoryHasProducts   = errors.New("cannot delete category with existing products")
	ErrProductNotFound       = errors.New("product not found")
	ErrReviewNotFound        = errors.New("review not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidReactionKind   = errors.New("invalid reaction kind")
	ErrForbidden             = errors.New("access forbidden")
)
