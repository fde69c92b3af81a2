package service

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/epicourier-team/epicourier-backend/internal/database"
	"github.com/epicourier-team/epicourier-backend/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// The in-memory database disappears with its last connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func seedRecipe(t *testing.T, db *gorm.DB, name string, embedding []float32) model.Recipe {
	t.Helper()
	recipe := model.Recipe{Name: name, Description: name}
	if embedding != nil {
		vec := pgvector.NewVector(embedding)
		recipe.Embedding = &vec
	}
	require.NoError(t, db.Create(&recipe).Error)
	return recipe
}

func TestMatchRecipesOrdersBySimilarity(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "exact match", []float32{1, 0, 0})
	seedRecipe(t, db, "close match", []float32{0.9, 0.1, 0})
	seedRecipe(t, db, "orthogonal", []float32{0, 1, 0})

	search := NewSearchService(db)
	out, err := search.MatchRecipes(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "exact match", out[0].Name)
	assert.Equal(t, "close match", out[1].Name)
	assert.Equal(t, "orthogonal", out[2].Name)
	assert.InDelta(t, 1.0, out[0].Similarity, 1e-6)
	assert.Greater(t, out[1].Similarity, out[2].Similarity)
}

func TestMatchRecipesSkipsUnembedded(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, "embedded", []float32{1, 0})
	seedRecipe(t, db, "pending backfill", nil)

	search := NewSearchService(db)
	out, err := search.MatchRecipes(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "embedded", out[0].Name)
}

func TestMatchRecipesLimit(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		seedRecipe(t, db, "recipe", []float32{1, float32(i)})
	}

	search := NewSearchService(db)
	out, err := search.MatchRecipes(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = search.MatchRecipes(context.Background(), []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMatchRecipesEmptyStore(t *testing.T) {
	db := newTestDB(t)
	search := NewSearchService(db)

	out, err := search.MatchRecipes(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}
