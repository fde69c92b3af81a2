package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/internal/model"
)

// ErrRecipeNotFound is returned when a recipe id or name cannot be resolved.
var ErrRecipeNotFound = errors.New("recipe not found")

// RecipeService provides read access to the recipe catalog.
type RecipeService struct {
	db *gorm.DB
}

// NewRecipeService creates a RecipeService.
func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// ListRecipes returns a page of recipes ordered by id.
func (s *RecipeService) ListRecipes(ctx context.Context, limit, offset int) ([]model.Recipe, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var recipes []model.Recipe
	err := s.db.WithContext(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// GetRecipe returns one recipe by id.
func (s *RecipeService) GetRecipe(ctx context.Context, id int) (*model.Recipe, error) {
	var recipe model.Recipe
	err := s.db.WithContext(ctx).First(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// ResolveRecipeID turns a model-supplied recipe reference into a real id.
// Models pass names as often as ids, so resolution tries, in order: numeric
// id, exact name match, then case-insensitive substring match.
func (s *RecipeService) ResolveRecipeID(ctx context.Context, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, ErrRecipeNotFound
	}

	if id, err := strconv.Atoi(ref); err == nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to check recipe: %w", err)
		}
		if count == 0 {
			return 0, ErrRecipeNotFound
		}
		return id, nil
	}

	var recipe model.Recipe
	err := s.db.WithContext(ctx).Select("id").Where("name = ?", ref).First(&recipe).Error
	if err == nil {
		return recipe.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up recipe by name: %w", err)
	}

	err = s.db.WithContext(ctx).Select("id").
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(ref)+"%").
		Order("id").
		First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrRecipeNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up recipe by name: %w", err)
	}
	return recipe.ID, nil
}
