package service

import "strings"

// Ingredient keywords that disqualify a recipe for vegetarian or vegan diets.
var nonVegKeywords = []string{
	"chicken", "beef", "pork", "lamb", "fish", "salmon", "tuna",
	"shrimp", "prawn", "meat", "bacon", "ham", "turkey", "duck",
}

// Additional exclusions for vegans on top of the vegetarian set.
var nonVeganKeywords = []string{
	"milk", "cheese", "butter", "cream", "yogurt", "egg", "honey", "gelatin",
}

// FilterAllergens removes recipes whose ingredients mention any listed
// allergen. The "No Allergy" sentinel disables filtering entirely.
func FilterAllergens(recipes []ScoredRecipe, allergies []string) []ScoredRecipe {
	if len(allergies) == 0 {
		return recipes
	}
	for _, a := range allergies {
		if strings.EqualFold(strings.TrimSpace(a), "no allergy") {
			return recipes
		}
	}

	filtered := recipes
	for _, allergen := range allergies {
		allergenLower := strings.ToLower(allergen)
		kept := filtered[:0:0]
		for _, r := range filtered {
			if !ingredientsContain(r.Ingredients, allergenLower) {
				kept = append(kept, r)
			}
		}
		filtered = kept
	}
	return filtered
}

// FilterDietaryPreferences filters recipes by preferences such as Vegetarian
// or Vegan. Both exclude recipes mentioning meat or fish ingredients; vegan
// additionally excludes dairy, eggs, honey and gelatin. Independently, when
// at least one surviving recipe carries the preference as a tag, the result
// is restricted to tagged recipes.
func FilterDietaryPreferences(recipes []ScoredRecipe, preferences []string) []ScoredRecipe {
	if len(preferences) == 0 {
		return recipes
	}

	filtered := recipes
	for _, pref := range preferences {
		prefLower := strings.ToLower(pref)

		if strings.Contains(prefLower, "vegetarian") || strings.Contains(prefLower, "vegan") {
			excluded := nonVegKeywords
			if strings.Contains(prefLower, "vegan") {
				excluded = append(append([]string{}, nonVegKeywords...), nonVeganKeywords...)
			}
			kept := filtered[:0:0]
			for _, r := range filtered {
				if !hasExcludedIngredient(r.Ingredients, excluded) {
					kept = append(kept, r)
				}
			}
			filtered = kept
		}

		tagged := filtered[:0:0]
		for _, r := range filtered {
			if hasTag(r.Tags, prefLower) {
				tagged = append(tagged, r)
			}
		}
		if len(tagged) > 0 {
			filtered = tagged
		}
	}
	return filtered
}

// PantryScore returns the fraction of recipe ingredients covered by pantry
// items, matching on substring in either direction.
func PantryScore(ingredients, pantryItems []string) float64 {
	if len(pantryItems) == 0 || len(ingredients) == 0 {
		return 0.0
	}

	matches := 0
	for _, ing := range ingredients {
		ingLower := strings.ToLower(ing)
		for _, item := range pantryItems {
			itemLower := strings.ToLower(item)
			if strings.Contains(ingLower, itemLower) || strings.Contains(itemLower, ingLower) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(ingredients))
}

// EquipmentScore returns 1.0 when any available equipment appears in the
// recipe tags, 0.0 otherwise.
func EquipmentScore(tags, availableEquipment []string) float64 {
	if len(availableEquipment) == 0 || len(tags) == 0 {
		return 0.0
	}
	for _, equip := range availableEquipment {
		equipLower := strings.ToLower(equip)
		for _, tag := range tags {
			if strings.Contains(strings.ToLower(tag), equipLower) {
				return 1.0
			}
		}
	}
	return 0.0
}

func ingredientsContain(ingredients []string, needleLower string) bool {
	for _, ing := range ingredients {
		if strings.Contains(strings.ToLower(ing), needleLower) {
			return true
		}
	}
	return false
}

func hasExcludedIngredient(ingredients, keywords []string) bool {
	for _, ing := range ingredients {
		ingLower := strings.ToLower(ing)
		for _, kw := range keywords {
			if strings.Contains(ingLower, kw) {
				return true
			}
		}
	}
	return false
}

func hasTag(tags []string, wantLower string) bool {
	for _, tag := range tags {
		if strings.ToLower(tag) == wantLower {
			return true
		}
	}
	return false
}
