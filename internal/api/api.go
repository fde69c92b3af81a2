package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/config"
	"github.com/epicourier-team/epicourier-backend/internal/agent"
	"github.com/epicourier-team/epicourier-backend/internal/database"
	"github.com/epicourier-team/epicourier-backend/internal/middleware"
	"github.com/epicourier-team/epicourier-backend/internal/service"
)

// SetupAPI wires services and registers all routes on the router.
func SetupAPI(router *gin.Engine, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) {
	llm := service.NewProviderChain(logger,
		service.NewRestyProvider(cfg.LLM.Primary),
		service.NewRestyProvider(cfg.LLM.Fallback),
	)
	embedder := service.NewEmbeddingService(cfg.Embedding)

	goals := service.NewGoalService(llm, redisClient, logger)
	search := service.NewSearchService(db)
	validator := service.NewDietaryValidator(llm, logger)
	planner := service.NewPlannerService(goals, embedder, search, validator, logger)
	recipes := service.NewRecipeService(db)
	insights := service.NewInsightsService(db)

	executor := agent.NewExecutor(db, planner, recipes, insights, logger)
	agentService := agent.NewService(llm, executor, db, logger)

	var chatRateLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter := middleware.NewChatRateLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		chatRateLimit = limiter.RateLimitMiddleware()
	}

	router.GET("/health", healthHandler(db, redisClient))

	root := router.Group("/")
	{
		NewRecommenderHandler(db, planner, logger).RegisterRoutes(root)
		NewAgentHandler(agentService, chatRateLimit, logger).RegisterRoutes(root)
		NewInsightsHandler(insights, logger).RegisterRoutes(root)
		NewRecipeHandler(recipes).RegisterRoutes(root)
	}
}

func healthHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		code := http.StatusOK

		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
			}
		}
		c.JSON(code, status)
	}
}
