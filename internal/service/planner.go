package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/epicourier-team/epicourier-backend/internal/model"
)

const defaultTopK = 20

// MealEntry is one recommended meal in a plan.
type MealEntry struct {
	MealNumber      int      `json:"meal_number"`
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Tags            []string `json:"tags"`
	KeyIngredients  []string `json:"key_ingredients"`
	Reason          string   `json:"reason"`
	SimilarityScore float64  `json:"similarity_score"`
	PantryScore     float64  `json:"pantry_score,omitempty"`
	Recipe          string   `json:"recipe"`
}

// MealPlan is the full recommendation response.
type MealPlan struct {
	Goal         string      `json:"goal"`
	ExpandedGoal string      `json:"expanded_goal"`
	Meals        []MealEntry `json:"meals"`
}

// PlannerService runs the full recommendation pipeline: goal expansion,
// similarity search, profile filtering and diversity selection.
type PlannerService struct {
	goals     *GoalService
	embedder  Embedder
	search    *SearchService
	validator *DietaryValidator
	logger    *zap.Logger
}

// NewPlannerService wires the pipeline stages together. The validator may be
// nil to skip the LLM compliance pass.
func NewPlannerService(goals *GoalService, embedder Embedder, search *SearchService, validator *DietaryValidator, logger *zap.Logger) *PlannerService {
	return &PlannerService{goals: goals, embedder: embedder, search: search, validator: validator, logger: logger}
}

// RankForGoal expands the goal, embeds it and returns the topK surviving
// recipes after profile filtering, ordered by similarity.
func (s *PlannerService) RankForGoal(ctx context.Context, goal string, profile *model.Profile, topK int) ([]ScoredRecipe, string, error) {
	expanded, err := s.goals.Expand(ctx, goal, profile)
	if err != nil {
		return nil, "", err
	}

	queryEmbedding, err := s.embedder.Embed(ctx, expanded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to embed goal: %w", err)
	}

	// Over-fetch so that post-filtering still leaves enough candidates.
	candidates, err := s.search.MatchRecipes(ctx, queryEmbedding, topK*3)
	if err != nil {
		return nil, "", err
	}

	if profile != nil {
		before := len(candidates)
		candidates = FilterAllergens(candidates, profile.Allergies)
		candidates = FilterDietaryPreferences(candidates, profile.DietaryPreferences)
		if s.validator != nil && len(profile.DietaryPreferences) > 0 {
			candidates = s.validator.Validate(ctx, candidates, profile.DietaryPreferences)
		}
		s.logger.Debug("applied profile filters",
			zap.Int("before", before),
			zap.Int("after", len(candidates)))
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, expanded, nil
}

// CreateMealPlan recommends up to nMeals recipes for the goal, honoring the
// user profile when present. An empty plan means no recipe survived search
// and filtering; that is the caller's condition to report, not an error.
func (s *PlannerService) CreateMealPlan(ctx context.Context, goal string, nMeals int, profile *model.Profile, pantryItems []string) (*MealPlan, error) {
	candidates, _, err := s.RankForGoal(ctx, goal, profile, defaultTopK)
	if err != nil {
		return nil, err
	}

	display, err := s.goals.ExpandForDisplay(ctx, goal)
	if err != nil {
		return nil, err
	}

	plan := &MealPlan{Goal: goal, ExpandedGoal: display}
	if len(candidates) == 0 {
		return plan, nil
	}

	diverse, err := s.selectDiverse(ctx, candidates, nMeals)
	if err != nil {
		return nil, err
	}

	for i, r := range diverse {
		entry := MealEntry{
			MealNumber:      i + 1,
			ID:              r.ID,
			Name:            r.Name,
			Tags:            r.Tags,
			KeyIngredients:  firstN(r.Ingredients, 10),
			Reason:          mealReason(r, goal),
			SimilarityScore: math.Round(r.Similarity*1000) / 1000,
			Recipe:          r.Text(),
		}
		if len(pantryItems) > 0 {
			entry.PantryScore = PantryScore(r.Ingredients, pantryItems)
		}
		plan.Meals = append(plan.Meals, entry)
	}
	return plan, nil
}

// selectDiverse embeds the candidate recipe texts and keeps the best recipe
// per embedding cluster. Candidates at or under the target count pass through
// without an embedding round trip.
func (s *PlannerService) selectDiverse(ctx context.Context, candidates []ScoredRecipe, nMeals int) ([]ScoredRecipe, error) {
	if len(candidates) <= nMeals {
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i := range candidates {
		texts[i] = candidates[i].Text()
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed candidates for diversity: %w", err)
	}
	return SelectDiverse(candidates, embeddings, nMeals), nil
}

func mealReason(r ScoredRecipe, goal string) string {
	tagsText := "balanced nutrition"
	if len(r.Tags) > 0 {
		tagsText = strings.Join(firstN(r.Tags, 3), ", ")
	}
	keyIngs := strings.Join(firstN(r.Ingredients, 3), ", ")
	return fmt.Sprintf("High match (%.2f) for '%s'. Features %s with key ingredients: %s.",
		math.Round(r.Similarity*100)/100, goal, tagsText, keyIngs)
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
