package agent

import (
	"context"
	"errors"
	"testing"

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

// scriptedLLM replays canned replies in order and records each request.
type scriptedLLM struct {
	replies  []*service.Message
	requests []*service.ChatRequest
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Chat(ctx context.Context, req *service.ChatRequest) (*service.Message, error) {
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type agentEnv struct {
	db      *gorm.DB
	llm     *scriptedLLM
	service *Service
	user    model.User
}

func newAgentEnv(t *testing.T, replies ...*service.Message) *agentEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	user := model.User{AuthID: uuid.New(), Email: "agent@example.com"}
	require.NoError(t, db.Create(&user).Error)

	llm := &scriptedLLM{replies: replies}
	logger := zap.NewNop()

	goals := service.NewGoalService(llm, nil, logger)
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	search := service.NewSearchService(db)
	planner := service.NewPlannerService(goals, embedder, search, nil, logger)
	recipes := service.NewRecipeService(db)
	insights := service.NewInsightsService(db)
	executor := NewExecutor(db, planner, recipes, insights, logger)

	return &agentEnv{
		db:      db,
		llm:     llm,
		service: NewService(llm, executor, db, logger),
		user:    user,
	}
}

func (e *agentEnv) seedRecipe(t *testing.T, name string) model.Recipe {
	t.Helper()
	vec := pgvector.NewVector([]float32{1, 0, 0})
	recipe := model.Recipe{Name: name, Description: name, Embedding: &vec}
	require.NoError(t, e.db.Create(&recipe).Error)
	return recipe
}

func TestChatDirectAnswer(t *testing.T) {
	env := newAgentEnv(t, &service.Message{Role: "assistant", Content: "Happy to help with meal ideas!"})

	result, err := env.service.Chat(context.Background(), env.user.AuthID.String(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Happy to help with meal ideas!", result.Response)
	assert.Empty(t, result.ToolCalls)

	// System prompt and tools go out on the first call.
	require.Len(t, env.llm.requests, 1)
	first := env.llm.requests[0]
	assert.Equal(t, "system", first.Messages[0].Role)
	assert.Len(t, first.Tools, 3)
	assert.Equal(t, "auto", first.ToolChoice)

	// Both turns are persisted.
	var rows []model.ChatMessage
	require.NoError(t, env.db.Order("created_at").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "user", rows[0].Role)
	assert.Equal(t, "agent", rows[1].Role)
}

func TestChatStructuredCalendarCall(t *testing.T) {
	env := newAgentEnv(t,
		&service.Message{
			Role: "assistant",
			ToolCalls: []service.ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: service.FunctionCall{
					Name:      toolAddToCalendar,
					Arguments: `{"recipe_id": "Lentil Soup", "date": "2026-09-05", "meal_type": "Dinner"}`,
				},
			}},
		},
		&service.Message{Role: "assistant", Content: "Added lentil soup to your calendar."},
	)
	recipe := env.seedRecipe(t, "Lentil Soup")

	result, err := env.service.Chat(context.Background(), env.user.AuthID.String(), "plan soup for saturday", nil)
	require.NoError(t, err)
	assert.Equal(t, "Added lentil soup to your calendar.", result.Response)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, toolAddToCalendar, result.ToolCalls[0].Tool)
	assert.Contains(t, result.ToolCalls[0].Result, "Successfully added")

	var entry model.CalendarEntry
	require.NoError(t, env.db.First(&entry).Error)
	assert.Equal(t, env.user.ID, entry.UserID)
	assert.Equal(t, recipe.ID, entry.RecipeID)
	assert.Equal(t, "2026-09-05", entry.Date)
	assert.Equal(t, "dinner", entry.MealType)
	assert.False(t, entry.Status)

	// The tool result travels back to the model under the call id.
	require.Len(t, env.llm.requests, 2)
	followUp := env.llm.requests[1].Messages
	last := followUp[len(followUp)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
}

func TestChatUnresolvableRecipeStaysInBand(t *testing.T) {
	env := newAgentEnv(t,
		&service.Message{
			Role: "assistant",
			ToolCalls: []service.ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: service.FunctionCall{
					Name:      toolAddToCalendar,
					Arguments: `{"recipe_id": "Dragon Stew", "date": "2026-09-05", "meal_type": "dinner"}`,
				},
			}},
		},
		&service.Message{Role: "assistant", Content: "I could not find that recipe, could you search again?"},
	)

	result, err := env.service.Chat(context.Background(), env.user.AuthID.String(), "add dragon stew", nil)
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t,
		"Error: Could not resolve recipe 'Dragon Stew' to an ID. Please ask for the recipe again so I can find it.",
		result.ToolCalls[0].Result)

	var count int64
	require.NoError(t, env.db.Model(&model.CalendarEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChatMalformedToolArguments(t *testing.T) {
	env := newAgentEnv(t,
		&service.Message{
			Role: "assistant",
			ToolCalls: []service.ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: service.FunctionCall{
					Name:      toolLogMetrics,
					Arguments: `{"weight_kg": 70.5`,
				},
			}},
		},
		&service.Message{Role: "assistant", Content: "Noted, though no values came through."},
	)

	// Truncated argument JSON degrades to empty args; the turn still runs.
	result, err := env.service.Chat(context.Background(), env.user.AuthID.String(), "log my weight", nil)
	require.NoError(t, err)
	assert.Equal(t, "Noted, though no values came through.", result.Response)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, toolLogMetrics, result.ToolCalls[0].Tool)
	assert.Empty(t, result.ToolCalls[0].Args)
	assert.Equal(t, "Successfully logged metrics.", result.ToolCalls[0].Result)

	var metric model.UserMetric
	require.NoError(t, env.db.First(&metric).Error)
	assert.Nil(t, metric.WeightKg)
	assert.Nil(t, metric.HeightCm)
}

func TestChatTextFallbackToolCall(t *testing.T) {
	env := newAgentEnv(t,
		// The model narrates the call as text instead of using tool calling.
		&service.Message{Role: "assistant", Content: `search_recipes({"query": "chicken"})`},
		// Goal expansion inside the search pipeline.
		&service.Message{Role: "assistant", Content: "protein_g: 120"},
		// Final summary.
		&service.Message{Role: "assistant", Content: "Found a chicken recipe for you."},
	)
	recipe := env.seedRecipe(t, "Chicken Rice")

	result, err := env.service.Chat(context.Background(), env.user.AuthID.String(), "find chicken recipes", nil)
	require.NoError(t, err)
	assert.Equal(t, "Found a chicken recipe for you.", result.Response)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, toolSearchRecipes, result.ToolCalls[0].Tool)
	results, ok := result.ToolCalls[0].Result.([]SearchResult)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, recipe.ID, results[0].ID)

	// The tool output is injected as a system message before summarizing.
	require.Len(t, env.llm.requests, 3)
	summaryMessages := env.llm.requests[2].Messages
	last := summaryMessages[len(summaryMessages)-1]
	assert.Equal(t, "system", last.Role)
	assert.Contains(t, last.Content, "Tool 'search_recipes' output:")
}

func TestChatHistoryRoundTrip(t *testing.T) {
	env := newAgentEnv(t,
		&service.Message{Role: "assistant", Content: "first"},
		&service.Message{Role: "assistant", Content: "second"},
	)
	authID := env.user.AuthID.String()

	_, err := env.service.Chat(context.Background(), authID, "one", nil)
	require.NoError(t, err)
	_, err = env.service.Chat(context.Background(), authID, "two", []HistoryMessage{
		{Role: "model", Parts: []string{"first"}},
	})
	require.NoError(t, err)

	history, err := env.service.History(context.Background(), authID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []string{"one", "first", "two", "second"},
		[]string{history[0].Content, history[1].Content, history[2].Content, history[3].Content})

	// Prior turns are normalized onto the assistant role.
	secondCall := env.llm.requests[1].Messages
	assert.Equal(t, "assistant", secondCall[1].Role)
	assert.Equal(t, "first", secondCall[1].Content)
}
