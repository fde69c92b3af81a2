package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/config"
	"github.com/epicourier-team/epicourier-backend/internal/model"
)

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService calls an OpenAI-compatible embeddings endpoint. The client
// is built lazily so construction never blocks startup.
type EmbeddingService struct {
	cfg    config.EmbeddingConfig
	once   sync.Once
	client *resty.Client
}

// NewEmbeddingService creates an EmbeddingService from configuration.
func NewEmbeddingService(cfg config.EmbeddingConfig) *EmbeddingService {
	return &EmbeddingService{cfg: cfg}
}

func (s *EmbeddingService) httpClient() *resty.Client {
	s.once.Do(func() {
		client := resty.New().
			SetBaseURL(s.cfg.BaseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(s.cfg.Timeout)
		if s.cfg.APIKey != "" {
			client.SetHeader("Authorization", "Bearer "+s.cfg.APIKey)
		}
		s.client = client
	})
	return s.client
}

// Embed returns the embedding vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input text, in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	resp, err := s.httpClient().R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model": s.cfg.Model,
			"input": texts,
		}).
		SetResult(&result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embedding request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(result.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if vecs[d.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding index %d", d.Index)
		}
		if len(d.Embedding) != s.cfg.Dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(d.Embedding), s.cfg.Dimension)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// BackfillRecipeEmbeddings embeds every recipe that has no embedding yet,
// in batches, and reports how many rows were updated.
func BackfillRecipeEmbeddings(ctx context.Context, db *gorm.DB, embedder Embedder, logger *zap.Logger) (int, error) {
	const batchSize = 64

	var recipes []model.Recipe
	if err := db.WithContext(ctx).Where("embedding IS NULL").Find(&recipes).Error; err != nil {
		return 0, fmt.Errorf("failed to load recipes without embeddings: %w", err)
	}
	if len(recipes) == 0 {
		return 0, nil
	}

	updated := 0
	for start := 0; start < len(recipes); start += batchSize {
		end := start + batchSize
		if end > len(recipes) {
			end = len(recipes)
		}
		batch := recipes[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text()
		}

		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return updated, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}

		for i := range batch {
			vec := pgvector.NewVector(vecs[i])
			if err := db.WithContext(ctx).Model(&model.Recipe{}).
				Where("id = ?", batch[i].ID).
				Update("embedding", &vec).Error; err != nil {
				return updated, fmt.Errorf("failed to store embedding for recipe %d: %w", batch[i].ID, err)
			}
			updated++
		}
		logger.Info("embedded recipe batch", zap.Int("done", updated), zap.Int("total", len(recipes)))
	}
	return updated, nil
}
