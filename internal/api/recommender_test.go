package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/epicourier-team/epicourier-backend/internal/database"
	"github.com/epicourier-team/epicourier-backend/internal/model"
	"github.com/epicourier-team/epicourier-backend/internal/service"
)

// fixedLLM answers every chat with the same content.
type fixedLLM struct {
	content string
}

func (f *fixedLLM) Name() string { return "fixed" }

func (f *fixedLLM) Chat(ctx context.Context, req *service.ChatRequest) (*service.Message, error) {
	return &service.Message{Role: "assistant", Content: f.content}, nil
}

type fixedEmbedder struct {
	vec []float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func newAPITestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func newRecommenderRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	llm := &fixedLLM{content: "calories_kcal: 2000, protein_g: 150"}
	goals := service.NewGoalService(llm, nil, logger)
	search := service.NewSearchService(db)
	planner := service.NewPlannerService(goals, &fixedEmbedder{vec: []float32{1, 0, 0}}, search, nil, logger)

	router := gin.New()
	NewRecommenderHandler(db, planner, logger).RegisterRoutes(router.Group("/"))
	return router
}

func postRecommender(router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/recommender", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedEmbeddedRecipe(t *testing.T, db *gorm.DB, name string, ingredients []string, embedding []float32) model.Recipe {
	t.Helper()
	vec := pgvector.NewVector(embedding)
	recipe := model.Recipe{
		Name:        name,
		Description: name,
		Ingredients: model.JSONBStringArray(ingredients),
		Embedding:   &vec,
	}
	require.NoError(t, db.Create(&recipe).Error)
	return recipe
}

func TestRecommendValidation(t *testing.T) {
	router := newRecommenderRouter(t, newAPITestDB(t))

	rec := postRecommender(router, map[string]interface{}{"goal": "  ", "numMeals": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "goal is required")

	rec = postRecommender(router, map[string]interface{}{"goal": "lose weight", "numMeals": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "numMeals must be 3, 5 or 7")
}

func TestRecommendEmptyCatalog(t *testing.T) {
	router := newRecommenderRouter(t, newAPITestDB(t))

	rec := postRecommender(router, map[string]interface{}{"goal": "lose weight", "numMeals": 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No suitable recipes found for your goal and dietary profile")
}

func TestRecommendReturnsPlan(t *testing.T) {
	db := newAPITestDB(t)
	for i := 0; i < 3; i++ {
		seedEmbeddedRecipe(t, db, fmt.Sprintf("Recipe %d", i),
			[]string{"rice", "beans"}, []float32{1, float32(i) * 0.01, 0})
	}
	router := newRecommenderRouter(t, db)

	rec := postRecommender(router, map[string]interface{}{"goal": "high protein", "numMeals": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Recipes      []service.MealEntry `json:"recipes"`
		GoalExpanded string              `json:"goal_expanded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recipes, 3)
	assert.Equal(t, "calories_kcal: 2000, protein_g: 150", body.GoalExpanded)

	first := body.Recipes[0]
	assert.Equal(t, 1, first.MealNumber)
	assert.NotEmpty(t, first.Name)
	assert.Contains(t, first.Reason, "high protein")
	assert.Greater(t, first.SimilarityScore, 0.0)
}

func TestRecommendInlineProfileFilters(t *testing.T) {
	db := newAPITestDB(t)
	seedEmbeddedRecipe(t, db, "Peanut Noodles", []string{"peanut", "noodles"}, []float32{1, 0, 0})
	seedEmbeddedRecipe(t, db, "Veggie Bowl", []string{"rice", "broccoli"}, []float32{0.9, 0.1, 0})
	router := newRecommenderRouter(t, db)

	rec := postRecommender(router, map[string]interface{}{
		"goal":     "quick dinner",
		"numMeals": 3,
		"userProfile": map[string]interface{}{
			"allergies": []string{"peanut"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Recipes []service.MealEntry `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recipes, 1)
	assert.Equal(t, "Veggie Bowl", body.Recipes[0].Name)
}

func TestRecommendStoredProfileByUserID(t *testing.T) {
	db := newAPITestDB(t)
	user := model.User{
		AuthID:    uuid.New(),
		Email:     "veg@example.com",
		Allergies: model.JSONBStringArray{"shrimp"},
	}
	require.NoError(t, db.Create(&user).Error)
	seedEmbeddedRecipe(t, db, "Shrimp Pasta", []string{"shrimp", "pasta"}, []float32{1, 0, 0})
	seedEmbeddedRecipe(t, db, "Tomato Pasta", []string{"tomato", "pasta"}, []float32{0.9, 0.1, 0})
	router := newRecommenderRouter(t, db)

	rec := postRecommender(router, map[string]interface{}{
		"goal":     "pasta night",
		"numMeals": 3,
		"userId":   user.AuthID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Recipes []service.MealEntry `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recipes, 1)
	assert.Equal(t, "Tomato Pasta", body.Recipes[0].Name)
}

func TestRecommendPantryScore(t *testing.T) {
	db := newAPITestDB(t)
	seedEmbeddedRecipe(t, db, "Rice Bowl", []string{"rice", "beans"}, []float32{1, 0, 0})
	router := newRecommenderRouter(t, db)

	rec := postRecommender(router, map[string]interface{}{
		"goal":        "cheap dinner",
		"numMeals":    3,
		"pantryItems": []string{"rice"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Recipes []service.MealEntry `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recipes, 1)
	assert.Equal(t, 0.5, body.Recipes[0].PantryScore)
}
