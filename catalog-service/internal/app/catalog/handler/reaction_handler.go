package handler

import (
	"context"
	"net/http"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ReactionHandler - лайки/дизлайки. Повторный запрос той же реакции снимает её.
type ReactionHandler struct {
	reactionService service.ReactionServiceInterface
	validator       *validator.Validate
}

func NewReactionHandler(reactionService service.ReactionServiceInterface) *ReactionHandler {
	return &ReactionHandler{
		reactionService: reactionService,
		validator:       validator.New(),
	}
}

// handleToggle - общий путь всех маршрутов реакций: id из пути, пользователь из токена
func handleToggle[T any](c *gin.Context, toggle func(ctx context.Context, entityID, userID uuid.UUID) (*T, error), fallback string) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := toggle(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err, fallback)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ReactionHandler) LikeProduct(c *gin.Context) {
	handleToggle(c, h.reactionService.LikeProduct, "Failed to like product")
}

func (h *ReactionHandler) DislikeProduct(c *gin.Context) {
	handleToggle(c, h.reactionService.DislikeProduct, "Failed to dislike product")
}

func (h *ReactionHandler) LikeReview(c *gin.Context) {
	handleToggle(c, h.reactionService.LikeReview, "Failed to like review")
}

func (h *ReactionHandler) DislikeReview(c *gin.Context) {
	handleToggle(c, h.reactionService.DislikeReview, "Failed to dislike review")
}

// ToggleProductReaction обрабатывает POST /products/:id/reactions {"kind": "LIKE"|"DISLIKE"}
func (h *ReactionHandler) ToggleProductReaction(c *gin.Context) {
	var req entity.ToggleReactionRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	handleToggle(c, func(ctx context.Context, productID, userID uuid.UUID) (*entity.Product, error) {
		return h.reactionService.ToggleProductReaction(ctx, productID, userID, req.Kind)
	}, "Failed to toggle product reaction")
}

func (h *ReactionHandler) ToggleReviewReaction(c *gin.Context) {
	var req entity.ToggleReactionRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	handleToggle(c, func(ctx context.Context, reviewID, userID uuid.UUID) (*entity.Review, error) {
		return h.reactionService.ToggleReviewReaction(ctx, reviewID, userID, req.Kind)
	}, "Failed to toggle review reaction")
}
