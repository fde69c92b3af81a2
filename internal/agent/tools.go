package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/internal/model"
	"github.com/epicourier-team/epicourier-backend/internal/service"
)

const (
	toolSearchRecipes = "search_recipes"
	toolAddToCalendar = "add_to_calendar"
	toolLogMetrics    = "log_metrics"
)

// toolDefinitions declares the functions the model may call.
func toolDefinitions() []service.Tool {
	return []service.Tool{
		{
			Type: "function",
			Function: service.ToolFunction{
				Name:        toolSearchRecipes,
				Description: "Search for recipes based on dietary goals or cravings.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "The user's food goal or craving (e.g., 'high protein pasta')",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: service.ToolFunction{
				Name:        toolAddToCalendar,
				Description: "Add a specific recipe to the user's meal calendar.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"recipe_id": map[string]interface{}{
							"type":        "string",
							"description": "The ID of the recipe to add",
						},
						"date": map[string]interface{}{
							"type":        "string",
							"description": "Date in YYYY-MM-DD format",
						},
						"meal_type": map[string]interface{}{
							"type":        "string",
							"description": "Meal type: 'Breakfast', 'Lunch', 'Dinner', or 'Snack'",
						},
					},
					"required": []string{"recipe_id", "date", "meal_type"},
				},
			},
		},
		{
			Type: "function",
			Function: service.ToolFunction{
				Name:        toolLogMetrics,
				Description: "Log the user's current weight or height.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"weight_kg": map[string]interface{}{
							"type":        "number",
							"description": "Weight in kg (optional)",
						},
						"height_cm": map[string]interface{}{
							"type":        "number",
							"description": "Height in cm (optional)",
						},
					},
				},
			},
		},
	}
}

func knownTools() map[string]bool {
	known := map[string]bool{}
	for _, t := range toolDefinitions() {
		known[t.Function.Name] = true
	}
	return known
}

// SearchResult is one recipe returned by the search tool.
type SearchResult struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	GreenScore  float64 `json:"green_score"`
}

// Executor runs agent tool calls against the application services. Tool
// failures are reported in-band as result strings so the model can relay
// them, never as transport errors.
type Executor struct {
	db       *gorm.DB
	planner  *service.PlannerService
	recipes  *service.RecipeService
	insights *service.InsightsService
	logger   *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(db *gorm.DB, planner *service.PlannerService, recipes *service.RecipeService, insights *service.InsightsService, logger *zap.Logger) *Executor {
	return &Executor{db: db, planner: planner, recipes: recipes, insights: insights, logger: logger}
}

// Execute dispatches one tool call on behalf of the given auth user.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}, authUserID string) interface{} {
	switch name {
	case toolSearchRecipes:
		return e.searchRecipes(ctx, stringArg(args, "query"), authUserID)
	case toolAddToCalendar:
		return e.addToCalendar(ctx, args, authUserID)
	case toolLogMetrics:
		return e.logMetrics(ctx, args, authUserID)
	default:
		return fmt.Sprintf("Error: Unknown tool '%s'.", name)
	}
}

func (e *Executor) searchRecipes(ctx context.Context, query, authUserID string) interface{} {
	profile := e.loadProfile(ctx, authUserID)

	ranked, _, err := e.planner.RankForGoal(ctx, query, profile, 5)
	if err != nil {
		e.logger.Warn("recipe search tool failed", zap.Error(err))
		return []SearchResult{}
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, SearchResult{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			GreenScore:  r.GreenScore,
		})
	}
	return results
}

func (e *Executor) addToCalendar(ctx context.Context, args map[string]interface{}, authUserID string) interface{} {
	publicID, err := e.insights.ResolveUserID(ctx, authUserID)
	if err != nil {
		return "Error: User not found."
	}

	ref := stringArg(args, "recipe_id")
	recipeID, err := e.recipes.ResolveRecipeID(ctx, ref)
	if errors.Is(err, service.ErrRecipeNotFound) {
		return fmt.Sprintf("Error: Could not resolve recipe '%s' to an ID. Please ask for the recipe again so I can find it.", ref)
	}
	if err != nil {
		return fmt.Sprintf("Error adding to calendar: %v", err)
	}

	date := stringArg(args, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Sprintf("Error: Invalid date '%s'. Expected YYYY-MM-DD.", date)
	}

	entry := &model.CalendarEntry{
		UserID:   publicID,
		RecipeID: recipeID,
		Date:     date,
		MealType: strings.ToLower(stringArg(args, "meal_type")),
		Status:   false,
	}
	if err := e.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Sprintf("Error adding to calendar: %v", err)
	}
	return fmt.Sprintf("Successfully added recipe %d to %s for %s.", recipeID, date, entry.MealType)
}

func (e *Executor) logMetrics(ctx context.Context, args map[string]interface{}, authUserID string) interface{} {
	metric := &service.MetricLog{
		UserID:   authUserID,
		WeightKg: floatArg(args, "weight_kg"),
		HeightCm: floatArg(args, "height_cm"),
	}
	if _, err := e.insights.LogMetrics(ctx, metric); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return "Error: User not found."
		}
		return fmt.Sprintf("Error logging metrics: %v", err)
	}
	return "Successfully logged metrics."
}

func (e *Executor) loadProfile(ctx context.Context, authUserID string) *model.Profile {
	publicID, err := e.insights.ResolveUserID(ctx, authUserID)
	if err != nil {
		return nil
	}
	var user model.User
	if err := e.db.WithContext(ctx).First(&user, publicID).Error; err != nil {
		return nil
	}
	return user.Profile()
}

func stringArg(args map[string]interface{}, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int(v))
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func floatArg(args map[string]interface{}, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return &v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return &f
		}
	}
	return nil
}
