package handler

import (
	"errors"
	"net/http"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/service"
	"storefront/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, entity.ErrorResponse{Error: message})
}

// respondServiceError переводит ошибки сервисного слоя в HTTP-статусы.
// Неизвестные ошибки логируются и отдаются как 500 с сообщением fallback.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		abortWithError(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, service.ErrReviewNotFound):
		abortWithError(c, http.StatusNotFound, "Review not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		abortWithError(c, http.StatusNotFound, "Category not found")
	case errors.Is(err, service.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidReactionKind):
		abortWithError(c, http.StatusBadRequest, "Reaction kind must be LIKE or DISLIKE")
	case errors.Is(err, service.ErrForbidden):
		abortWithError(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, service.ErrCategoryAlreadyExists):
		abortWithError(c, http.StatusConflict, "Category with this name already exists")
	case errors.Is(err, service.ErrCategoryHasProducts):
		abortWithError(c, http.StatusConflict, "Category has products")
	default:
		logger.Error().
			Err(err).
			Str("route", c.FullPath()).
			Str("request_id", c.GetString("request_id")).
			Msg(fallback)
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

// pathID разбирает uuid из параметра пути; при ошибке сам отвечает 400
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// requireUser - для маршрутов за Authenticate; без пользователя отвечает 401
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Unauthorized")
	}
	return userID, ok
}

// bindAndValidate читает JSON-тело в req и прогоняет его через validator
func bindAndValidate(c *gin.Context, v *validator.Validate, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := v.Struct(req); err != nil {
		abortWithError(c, http.StatusBadRequest, formatValidationError(err))
		return false
	}
	return true
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return validationErrors[0].Field() + " is " + validationErrors[0].Tag()
	}
	return "Validation failed"
}
