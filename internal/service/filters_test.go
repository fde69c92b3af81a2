package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/epicourier-team/epicourier-backend/internal/model"
)

func candidate(id int, name string, ingredients, tags []string, similarity float64) ScoredRecipe {
	return ScoredRecipe{
		Recipe: model.Recipe{
			ID:          id,
			Name:        name,
			Ingredients: model.JSONBStringArray(ingredients),
			Tags:        model.JSONBStringArray(tags),
		},
		Similarity: similarity,
	}
}

func TestFilterAllergensNoAllergySentinel(t *testing.T) {
	recipes := []ScoredRecipe{
		candidate(1, "Peanut Stew", []string{"peanut butter", "chicken"}, nil, 0.9),
		candidate(2, "Rice Bowl", []string{"rice", "egg"}, nil, 0.8),
	}

	for _, sentinel := range []string{"No Allergy", "no allergy", "NO ALLERGY"} {
		out := FilterAllergens(recipes, []string{sentinel, "peanut"})
		assert.Equal(t, recipes, out)
	}
}

func TestFilterAllergensRemovesMatches(t *testing.T) {
	recipes := []ScoredRecipe{
		candidate(1, "Peanut Stew", []string{"Peanut Butter", "chicken"}, nil, 0.9),
		candidate(2, "Rice Bowl", []string{"rice", "egg"}, nil, 0.8),
		candidate(3, "Shrimp Pasta", []string{"shrimp", "pasta"}, nil, 0.7),
	}

	out := FilterAllergens(recipes, []string{"peanut", "shellfish"})
	assert.Len(t, out, 2)
	assert.Equal(t, 2, out[0].ID)
	assert.Equal(t, 3, out[1].ID)

	// AND semantics: a second allergen removes further recipes.
	out = FilterAllergens(recipes, []string{"peanut", "shrimp"})
	assert.Len(t, out, 1)
	assert.Equal(t, 2, out[0].ID)
}

func TestFilterAllergensEmptyList(t *testing.T) {
	recipes := []ScoredRecipe{candidate(1, "Anything", []string{"peanut"}, nil, 0.5)}
	assert.Equal(t, recipes, FilterAllergens(recipes, nil))
}

func TestFilterDietaryVegetarianExcludesMeat(t *testing.T) {
	recipes := []ScoredRecipe{
		candidate(1, "Chicken Curry", []string{"chicken breast", "rice"}, nil, 0.9),
		candidate(2, "Veggie Bowl", []string{"tofu", "rice", "cheese"}, nil, 0.8),
		candidate(3, "Salmon Salad", []string{"salmon", "lettuce"}, nil, 0.7),
	}

	out := FilterDietaryPreferences(recipes, []string{"Vegetarian"})
	assert.Len(t, out, 1)
	assert.Equal(t, 2, out[0].ID)
}

func TestFilterDietaryVeganSupersetOfVegetarian(t *testing.T) {
	recipes := []ScoredRecipe{
		candidate(1, "Cheese Toast", []string{"bread", "cheese"}, nil, 0.9),
		candidate(2, "Honey Granola", []string{"oats", "honey"}, nil, 0.8),
		candidate(3, "Bean Chili", []string{"beans", "tomato"}, nil, 0.7),
	}

	// Vegetarian keeps dairy and honey.
	out := FilterDietaryPreferences(recipes, []string{"vegetarian"})
	assert.Len(t, out, 3)

	// Vegan does not.
	out = FilterDietaryPreferences(recipes, []string{"vegan"})
	assert.Len(t, out, 1)
	assert.Equal(t, 3, out[0].ID)
}

func TestFilterDietaryTagRestrictOnlyWhenPresent(t *testing.T) {
	tagged := []ScoredRecipe{
		candidate(1, "Lentil Soup", []string{"lentils"}, []string{"vegan", "soup"}, 0.9),
		candidate(2, "Bean Chili", []string{"beans"}, []string{"spicy"}, 0.8),
	}
	out := FilterDietaryPreferences(tagged, []string{"vegan"})
	assert.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)

	// No candidate carries the tag: keyword-filtered set is kept as-is.
	untagged := []ScoredRecipe{
		candidate(3, "Lentil Soup", []string{"lentils"}, []string{"soup"}, 0.9),
		candidate(4, "Bean Chili", []string{"beans"}, []string{"spicy"}, 0.8),
	}
	out = FilterDietaryPreferences(untagged, []string{"vegan"})
	assert.Len(t, out, 2)
}

func TestPantryScore(t *testing.T) {
	assert.Equal(t, 0.0, PantryScore(nil, []string{"tomato"}))
	assert.Equal(t, 0.0, PantryScore([]string{"tomato"}, nil))

	score := PantryScore(
		[]string{"tomato", "basil", "pasta", "cheese"},
		[]string{"tomato", "basil"},
	)
	assert.Equal(t, 0.5, score)

	score = PantryScore([]string{"cherry tomato", "basil"}, []string{"tomato", "basil"})
	assert.Equal(t, 1.0, score)
}

func TestEquipmentScore(t *testing.T) {
	assert.Equal(t, 0.0, EquipmentScore(nil, []string{"oven"}))
	assert.Equal(t, 0.0, EquipmentScore([]string{"oven-baked"}, nil))
	assert.Equal(t, 1.0, EquipmentScore([]string{"Oven-Baked", "dinner"}, []string{"oven"}))
	assert.Equal(t, 0.0, EquipmentScore([]string{"stovetop"}, []string{"air fryer"}))
}
