package handler

import (
	"net/http"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ReviewHandler struct {
	reviewService service.ReviewServiceInterface
	validator     *validator.Validate
}

func NewReviewHandler(reviewService service.ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		validator:     validator.New(),
	}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req entity.CreateReviewRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), userID, &req)
	if err != nil {
		respondServiceError(c, err, "Failed to create review")
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) GetReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "Failed to get review")
		return
	}

	c.JSON(http.StatusOK, review)
}

// GetReviewsByProduct обрабатывает GET /products/:id/reviews, скрытые отзывы не отдаются
func (h *ReviewHandler) GetReviewsByProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	reviews, err := h.reviewService.GetReviewsByProduct(c.Request.Context(), productID)
	if err != nil {
		respondServiceError(c, err, "Failed to get reviews")
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{
		Reviews: reviews,
		Total:   len(reviews),
	})
}

func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req entity.UpdateReviewRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), id, userID, &req)
	if err != nil {
		respondServiceError(c, err, "Failed to update review")
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), id, userID, isAdmin(c)); err != nil {
		respondServiceError(c, err, "Failed to delete review")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Review deleted successfully"})
}

// SetVisibility - модерация, маршрут закрыт ролью admin
func (h *ReviewHandler) SetVisibility(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req entity.SetReviewVisibilityRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	review, err := h.reviewService.SetReviewHidden(c.Request.Context(), id, *req.Hidden)
	if err != nil {
		respondServiceError(c, err, "Failed to change review visibility")
		return
	}

	c.JSON(http.StatusOK, review)
}
