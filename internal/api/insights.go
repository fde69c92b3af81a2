package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/epicourier-team/epicourier-backend/internal/service"
)

// InsightsHandler serves metric logging and dashboard statistics.
type InsightsHandler struct {
	insights *service.InsightsService
	logger   *zap.Logger
}

// NewInsightsHandler creates an InsightsHandler.
func NewInsightsHandler(insights *service.InsightsService, logger *zap.Logger) *InsightsHandler {
	return &InsightsHandler{insights: insights, logger: logger}
}

func (h *InsightsHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/insights")
	{
		group.POST("/metrics", h.LogMetrics)
		group.GET("/stats", h.Stats)
	}
}

func (h *InsightsHandler) LogMetrics(c *gin.Context) {
	var metric service.MetricLog
	if err := c.ShouldBindJSON(&metric); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if metric.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	row, err := h.insights.LogMetrics(c.Request.Context(), &metric)
	if errors.Is(err, service.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User profile not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to log metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Metrics logged successfully",
		"data":    row,
	})
}

func (h *InsightsHandler) Stats(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	period := c.DefaultQuery("period", "30d")

	stats, err := h.insights.Stats(c.Request.Context(), userID, period)
	if err != nil {
		h.logger.Error("failed to compute stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
