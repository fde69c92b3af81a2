package service

import (
	"fmt"
	"sort"
	"time"
)

// InventoryItem is a pantry item with an optional expiration date.
type InventoryItem struct {
	IngredientID   int      `json:"ingredient_id"`
	Name           string   `json:"name"`
	Quantity       float64  `json:"quantity"`
	Unit           string   `json:"unit"`
	ExpirationDate string   `json:"expiration_date,omitempty"` // YYYY-MM-DD
	PurchasePrice  *float64 `json:"purchase_price,omitempty"`
}

// UrgencyRecommendation is a recipe scored against expiring inventory.
type UrgencyRecommendation struct {
	RecipeID            int      `json:"recipe_id"`
	RecipeName          string   `json:"recipe_name"`
	Score               float64  `json:"score"`
	UrgencyScore        float64  `json:"urgency_score"`
	Coverage            float64  `json:"coverage"`
	Reasoning           string   `json:"reasoning"`
	ExpiringIngredients []string `json:"expiring_ingredients"`
	EstimatedCost       float64  `json:"estimated_cost"`
}

// UrgencyRecipe is the recipe shape the urgency scorer consumes.
type UrgencyRecipe struct {
	ID              int
	Name            string
	IngredientIDs   []int
	PrepTimeMinutes int
	Rating          float64
}

// ExpirationUrgency maps each inventory item to an urgency score from its
// days until expiration. Items without a date score 0.
func ExpirationUrgency(inventory []InventoryItem, now time.Time) map[int]float64 {
	scores := make(map[int]float64, len(inventory))
	for _, item := range inventory {
		if item.ExpirationDate == "" {
			scores[item.IngredientID] = 0.0
			continue
		}
		expDate, err := time.Parse("2006-01-02", item.ExpirationDate)
		if err != nil {
			scores[item.IngredientID] = 0.0
			continue
		}

		days := int(expDate.Sub(now).Hours() / 24)
		switch {
		case days <= 0:
			scores[item.IngredientID] = 1.0
		case days <= 3:
			scores[item.IngredientID] = 0.8
		case days <= 7:
			scores[item.IngredientID] = 0.5
		default:
			scores[item.IngredientID] = 0.1
		}
	}
	return scores
}

// RecommendWithExpiration ranks recipes so that expiring inventory gets used
// first. The combined score weighs urgency 60%, ingredient coverage 30% and
// recipe rating 10%. Recipes sharing no ingredient with the inventory are
// skipped, as are slow recipes when quickMealsOnly is set.
func RecommendWithExpiration(recipes []UrgencyRecipe, inventory []InventoryItem, numRecipes int, quickMealsOnly bool, now time.Time) []UrgencyRecommendation {
	urgency := ExpirationUrgency(inventory, now)

	available := make(map[int]InventoryItem, len(inventory))
	for _, item := range inventory {
		available[item.IngredientID] = item
	}

	var scored []UrgencyRecommendation
	for _, recipe := range recipes {
		if len(recipe.IngredientIDs) == 0 {
			continue
		}
		if quickMealsOnly && recipe.PrepTimeMinutes > 30 {
			continue
		}

		var covered []int
		for _, id := range recipe.IngredientIDs {
			if _, ok := available[id]; ok {
				covered = append(covered, id)
			}
		}
		if len(covered) == 0 {
			continue
		}
		coverage := float64(len(covered)) / float64(len(recipe.IngredientIDs))

		var urgencySum float64
		for _, id := range covered {
			urgencySum += urgency[id]
		}
		recipeUrgency := urgencySum / float64(len(covered))

		var cost float64
		var expiring []string
		for _, id := range covered {
			item := available[id]
			if item.PurchasePrice != nil {
				cost += *item.PurchasePrice * (item.Quantity / 100)
			}
			if urgency[id] > 0.5 {
				expiring = append(expiring, item.Name)
			}
		}

		rating := recipe.Rating
		if rating == 0 {
			rating = 0.5
		}
		score := recipeUrgency*0.6 + coverage*0.3 + rating*0.1

		scored = append(scored, UrgencyRecommendation{
			RecipeID:            recipe.ID,
			RecipeName:          recipe.Name,
			Score:               score,
			UrgencyScore:        recipeUrgency,
			Coverage:            coverage,
			Reasoning:           fmt.Sprintf("Uses %d ingredients expiring soon. Match: %.0f%% of recipe ingredients available.", len(expiring), coverage*100),
			ExpiringIngredients: expiring,
			EstimatedCost:       cost,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > numRecipes {
		scored = scored[:numRecipes]
	}
	return scored
}
