package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/epicourier-team/epicourier-backend/config"
	"github.com/epicourier-team/epicourier-backend/internal/database"
	"github.com/epicourier-team/epicourier-backend/internal/model"
	"github.com/epicourier-team/epicourier-backend/internal/service"
)

// Seeds the recipe catalog from a CSV export and computes embeddings.
//
// Expected columns: name, description, green_score, prep_time_minutes,
// tags (pipe-separated), ingredients (pipe-separated).
func main() {
	csvPath := flag.String("csv", "data/recipes.csv", "path to the recipe CSV file")
	skipEmbed := flag.Bool("skip-embeddings", false, "insert rows without computing embeddings")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		logger.Fatal("failed to open CSV", zap.String("path", *csvPath), zap.Error(err))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		logger.Fatal("failed to read CSV", zap.Error(err))
	}
	if len(rows) < 2 {
		logger.Fatal("CSV has no data rows")
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "description", "ingredients"} {
		if _, ok := col[required]; !ok {
			logger.Fatal("CSV missing required column", zap.String("column", required))
		}
	}

	inserted := 0
	for _, row := range rows[1:] {
		recipe := model.Recipe{
			Name:        field(row, col, "name"),
			Description: field(row, col, "description"),
			Tags:        model.JSONBStringArray(splitList(field(row, col, "tags"))),
			Ingredients: model.JSONBStringArray(splitList(field(row, col, "ingredients"))),
		}
		if recipe.Name == "" {
			continue
		}
		if v, err := strconv.ParseFloat(field(row, col, "green_score"), 64); err == nil {
			recipe.GreenScore = v
		}
		if v, err := strconv.Atoi(field(row, col, "prep_time_minutes")); err == nil {
			recipe.PrepTimeMinutes = v
		}

		if err := db.Create(&recipe).Error; err != nil {
			logger.Warn("failed to insert recipe", zap.String("name", recipe.Name), zap.Error(err))
			continue
		}
		inserted++
	}
	logger.Info("seeded recipes", zap.Int("inserted", inserted))

	if *skipEmbed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	embedder := service.NewEmbeddingService(cfg.Embedding)
	updated, err := service.BackfillRecipeEmbeddings(ctx, db, embedder, logger)
	if err != nil {
		logger.Fatal("embedding backfill failed", zap.Error(err))
	}
	logger.Info("computed embeddings", zap.Int("updated", updated))
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
