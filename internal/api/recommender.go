package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/internal/model"
	"github.com/epicourier-team/epicourier-backend/internal/service"
)

var allowedMealCounts = map[int]bool{3: true, 5: true, 7: true}

type recommendRequest struct {
	Goal        string         `json:"goal"`
	NumMeals    int            `json:"numMeals"`
	UserID      string         `json:"userId"`
	UserEmail   string         `json:"userEmail"`
	UserProfile *model.Profile `json:"userProfile"`
	PantryItems []string       `json:"pantryItems"`
}

// RecommenderHandler serves the meal plan recommendation endpoint.
type RecommenderHandler struct {
	db      *gorm.DB
	planner *service.PlannerService
	logger  *zap.Logger
}

// NewRecommenderHandler creates a RecommenderHandler.
func NewRecommenderHandler(db *gorm.DB, planner *service.PlannerService, logger *zap.Logger) *RecommenderHandler {
	return &RecommenderHandler{db: db, planner: planner, logger: logger}
}

func (h *RecommenderHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/recommender", h.Recommend)
}

// Recommend builds a meal plan for the requested goal. The caller can pass
// an inline profile, a user id or an email; the first one present wins.
func (h *RecommenderHandler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(req.Goal) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "goal is required"})
		return
	}
	if !allowedMealCounts[req.NumMeals] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "numMeals must be 3, 5 or 7"})
		return
	}

	profile := h.resolveProfile(c, &req)

	plan, err := h.planner.CreateMealPlan(c.Request.Context(), req.Goal, req.NumMeals, profile, req.PantryItems)
	if err != nil {
		h.logger.Error("meal plan creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create meal plan"})
		return
	}

	if len(plan.Meals) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No suitable recipes found for your goal and dietary profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes":       plan.Meals,
		"goal_expanded": plan.ExpandedGoal,
	})
}

// resolveProfile applies the precedence inline profile > user id > email.
// Lookup misses degrade to an unpersonalized plan.
func (h *RecommenderHandler) resolveProfile(c *gin.Context, req *recommendRequest) *model.Profile {
	if req.UserProfile != nil {
		return req.UserProfile
	}

	var user model.User
	if req.UserID != "" {
		if authID, err := uuid.Parse(req.UserID); err == nil {
			err := h.db.WithContext(c.Request.Context()).Where("auth_id = ?", authID).First(&user).Error
			if err == nil {
				return user.Profile()
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				h.logger.Warn("profile lookup by id failed", zap.Error(err))
			}
		}
	}
	if req.UserEmail != "" {
		err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.UserEmail).First(&user).Error
		if err == nil {
			return user.Profile()
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("profile lookup by email failed", zap.Error(err))
		}
	}
	return nil
}
