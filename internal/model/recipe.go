package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Recipe is a seeded recipe row. Rows are immutable after seeding except for
// embedding backfill.
type Recipe struct {
	ID              int              `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	Name            string           `gorm:"size:255;not null" json:"name"`
	Description     string           `gorm:"type:text" json:"description"`
	GreenScore      float64          `gorm:"type:float" json:"green_score"`
	PrepTimeMinutes int              `json:"prep_time_minutes"`
	Tags            JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"tags"`
	Ingredients     JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	Embedding       *pgvector.Vector `gorm:"type:vector(384)" json:"-"`
}

// Text renders the descriptive text that gets embedded and shown in meal
// plans: description plus ingredient and tag lists.
func (r *Recipe) Text() string {
	var b strings.Builder
	b.WriteString(r.Description)
	b.WriteString(". Ingredients: ")
	b.WriteString(strings.Join(r.Ingredients, ", "))
	b.WriteString(". Tags: ")
	b.WriteString(strings.Join(r.Tags, ", "))
	b.WriteString(".")
	return b.String()
}

// Ingredient carries the full nutrient vector for one ingredient.
type Ingredient struct {
	ID              int     `gorm:"primaryKey" json:"id"`
	Name            string  `gorm:"size:255;not null" json:"name"`
	Unit            string  `gorm:"size:50" json:"unit"`
	CaloriesKcal    float64 `json:"calories_kcal"`
	ProteinG        float64 `json:"protein_g"`
	CarbsG          float64 `json:"carbs_g"`
	SugarsG         float64 `json:"sugars_g"`
	TotalFatsG      float64 `json:"total_fats_g"`
	CholesterolMg   float64 `json:"cholesterol_mg"`
	TotalMineralsMg float64 `json:"total_minerals_mg"`
	VitAMicrog      float64 `json:"vit_a_microg"`
	TotalVitBMg     float64 `json:"total_vit_b_mg"`
	VitCMg          float64 `json:"vit_c_mg"`
	VitDMicrog      float64 `json:"vit_d_microg"`
	VitEMg          float64 `json:"vit_e_mg"`
	VitKMicrog      float64 `json:"vit_k_microg"`
}

// RecipeIngredient maps a recipe to an ingredient with a relative quantity.
type RecipeIngredient struct {
	RecipeID         int     `gorm:"primaryKey" json:"recipe_id"`
	IngredientID     int     `gorm:"primaryKey" json:"ingredient_id"`
	RelativeQuantity float64 `json:"relative_quantity"`
}

func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}
