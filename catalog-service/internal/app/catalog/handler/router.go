package handler

import (
	"slices"
	"time"

	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Catalog  *CatalogHandler
	Reviews  *ReviewHandler
	Reaction *ReactionHandler
	Health   *HealthHandler
}

// SetupRoutes настраивает все маршруты Catalog Service.
// Чтение доступно любому аутентифицированному пользователю, запись каталога - manager/admin.
func SetupRoutes(h Handlers, authMiddleware *AuthMiddleware, corsOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	if len(corsOrigins) > 0 {
		router.Use(cors.New(corsConfig(corsOrigins)))
	}

	router.GET("/health", h.Health.Health)
	router.GET("/health/liveness", h.Health.Liveness)
	router.GET("/health/readiness", h.Health.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	writers := authMiddleware.RequireRole(RoleManager, RoleAdmin)
	admins := authMiddleware.RequireRole(RoleAdmin)

	categories := router.Group("/categories")
	categories.Use(authMiddleware.Authenticate())
	{
		categories.GET("", h.Catalog.GetAllCategories)
		categories.GET("/:id", h.Catalog.GetCategory)
		categories.POST("", writers, h.Catalog.CreateCategory)
		categories.PUT("/:id", writers, h.Catalog.UpdateCategory)
		categories.DELETE("/:id", admins, h.Catalog.DeleteCategory)
	}

	products := router.Group("/products")
	products.Use(authMiddleware.Authenticate())
	{
		products.GET("", h.Catalog.GetAllProducts)
		products.GET("/:id", h.Catalog.GetProduct)
		products.POST("", writers, h.Catalog.CreateProduct)
		products.PUT("/:id", writers, h.Catalog.UpdateProduct)
		products.DELETE("/:id", admins, h.Catalog.DeleteProduct)

		products.GET("/:id/reviews", h.Reviews.GetReviewsByProduct)

		products.POST("/:id/like", h.Reaction.LikeProduct)
		products.POST("/:id/dislike", h.Reaction.DislikeProduct)
		products.POST("/:id/reactions", h.Reaction.ToggleProductReaction)
	}

	reviews := router.Group("/reviews")
	reviews.Use(authMiddleware.Authenticate())
	{
		reviews.POST("", h.Reviews.CreateReview)
		reviews.GET("/:id", h.Reviews.GetReview)
		reviews.PUT("/:id", h.Reviews.UpdateReview)
		reviews.DELETE("/:id", h.Reviews.DeleteReview)
		reviews.PATCH("/:id/visibility", admins, h.Reviews.SetVisibility)

		reviews.POST("/:id/like", h.Reaction.LikeReview)
		reviews.POST("/:id/dislike", h.Reaction.DislikeReview)
		reviews.POST("/:id/reactions", h.Reaction.ToggleReviewReaction)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           5 * time.Minute,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
