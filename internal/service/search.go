package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/internal/model"
)

// ScoredRecipe pairs a recipe with its similarity to a query embedding.
type ScoredRecipe struct {
	model.Recipe
	Similarity float64 `json:"similarity"`
}

// SearchService finds recipes closest to a query embedding.
type SearchService struct {
	db *gorm.DB
}

// NewSearchService creates a SearchService backed by the given database.
func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

// MatchRecipes returns up to limit recipes ordered by cosine similarity,
// highest first. Recipes without an embedding are skipped. An empty result
// is not an error.
func (s *SearchService) MatchRecipes(ctx context.Context, queryEmbedding []float32, limit int) ([]ScoredRecipe, error) {
	if limit <= 0 {
		return nil, nil
	}

	if s.db.Dialector.Name() == "postgres" {
		return s.matchPgvector(ctx, queryEmbedding, limit)
	}
	return s.matchInMemory(ctx, queryEmbedding, limit)
}

func (s *SearchService) matchPgvector(ctx context.Context, queryEmbedding []float32, limit int) ([]ScoredRecipe, error) {
	vec := pgvector.NewVector(queryEmbedding)

	var results []ScoredRecipe
	err := s.db.WithContext(ctx).Raw(`
		SELECT *, 1 - (embedding <=> ?) AS similarity
		FROM recipes
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> ?
		LIMIT ?`, vec, vec, limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	return results, nil
}

// matchInMemory loads all embedded recipes and ranks them in Go. Used on
// non-postgres dialects where the vector operators are unavailable.
func (s *SearchService) matchInMemory(ctx context.Context, queryEmbedding []float32, limit int) ([]ScoredRecipe, error) {
	var recipes []model.Recipe
	if err := s.db.WithContext(ctx).Where("embedding IS NOT NULL").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	results := make([]ScoredRecipe, 0, len(recipes))
	for _, r := range recipes {
		if r.Embedding == nil {
			continue
		}
		sim := cosineSimilarity(queryEmbedding, r.Embedding.Slice())
		results = append(results, ScoredRecipe{Recipe: r, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
