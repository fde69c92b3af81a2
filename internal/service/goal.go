package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/epicourier-team/epicourier-backend/internal/model"
)

const goalCacheTTL = 6 * time.Hour

// GoalService translates free-text diet goals into target nutritional values
// that embed well against recipe nutrition text.
type GoalService struct {
	llm    ChatProvider
	redis  *redis.Client
	logger *zap.Logger
}

// NewGoalService creates a GoalService. The redis client may be nil, in which
// case expansion results are not cached.
func NewGoalService(llm ChatProvider, redisClient *redis.Client, logger *zap.Logger) *GoalService {
	return &GoalService{llm: llm, redis: redisClient, logger: logger}
}

// Expand translates a goal into target nutritional values for a daily meal
// plan, treating the profile's allergies and dietary preferences as strict
// constraints. Results are cached since identical goals are common.
func (s *GoalService) Expand(ctx context.Context, goal string, profile *model.Profile) (string, error) {
	cacheKey := s.cacheKey("expansion", goal, profile)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	prompt := fmt.Sprintf(`Your task is to translate a user's specific diet goal into precise, target nutritional values for a daily meal plan.
Just provide the nutritional values without any additional explanation or context.

**GOAL:** %s
%s
You may include: calories_kcal, protein_g, carbs_g, sugars_g, total_fats_g,
cholesterol_mg, total_minerals_mg, vit_a_microg, total_vit_b_mg,
vit_c_mg, vit_d_microg, vit_e_mg, vit_k_microg`, goal, profileConstraints(profile))

	msg, err := s.llm.Chat(ctx, &ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("goal expansion failed: %w", err)
	}

	expanded := strings.TrimSpace(msg.Content)
	s.cacheSet(ctx, cacheKey, expanded)
	return expanded, nil
}

// ExpandForDisplay produces the human-readable expansion shown back to the
// user alongside the plan.
func (s *GoalService) ExpandForDisplay(ctx context.Context, goal string) (string, error) {
	cacheKey := s.cacheKey("display", goal, nil)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	prompt := fmt.Sprintf(`Your task is to translate a user's specific diet goal into precise, target nutritional values for a daily meal plan.

**GOAL:** %s

You may include: calories_kcal, protein_g, carbs_g, sugars_g, total_fats_g, cholesterol_mg, total_minerals_mg, vit_a_microg, total_vit_b_mg, vit_c_mg, vit_d_microg, vit_e_mg, vit_k_microg`, goal)

	msg, err := s.llm.Chat(ctx, &ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("goal expansion failed: %w", err)
	}

	expanded := strings.TrimSpace(msg.Content)
	s.cacheSet(ctx, cacheKey, expanded)
	return expanded, nil
}

func profileConstraints(profile *model.Profile) string {
	if profile == nil {
		return ""
	}
	var sb strings.Builder
	if len(profile.Allergies) > 0 {
		fmt.Fprintf(&sb, "The user is strictly allergic to: %s.\n", strings.Join(profile.Allergies, ", "))
	}
	if len(profile.DietaryPreferences) > 0 {
		fmt.Fprintf(&sb, "The user strictly follows these diets: %s.\n", strings.Join(profile.DietaryPreferences, ", "))
	}
	return sb.String()
}

func (s *GoalService) cacheKey(kind, goal string, profile *model.Profile) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(goal))))
	if profile != nil {
		h.Write([]byte(strings.ToLower(strings.Join(profile.Allergies, ","))))
		h.Write([]byte(strings.ToLower(strings.Join(profile.DietaryPreferences, ","))))
	}
	return "goal:" + kind + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

func (s *GoalService) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.redis == nil {
		return "", false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *GoalService) cacheSet(ctx context.Context, key, expanded string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, key, expanded, goalCacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache goal expansion", zap.Error(err))
	}
}
