package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/internal/model"
	"github.com/epicourier-team/epicourier-backend/internal/service"
)

const systemInstruction = `You are an intelligent culinary assistant for the Epicourier app.
You can help users find recipes, plan their meals (add to calendar), and track their health.

- Users may view recipes, add them to a calendar, or log health metrics.
- If a user wants to add a meal to their plan, ensure you have the date and meal type.
- When adding a recipe, use the ID found in the search results context.
- **IMPORTANT**: Do NOT use XML tags like <function>. Just call the tool directly using the provided tool definitions.
- **CRITICAL**: Do NOT narrate your actions (e.g., "I will search for that", "Let me check"). call the tool IMMEDIATELY and SILENTLY. Only speak to the user using the information returned by the tool.
- Be concise, friendly, and helpful.`

// HistoryMessage is one prior turn as the frontend sends it. Older clients
// send the text in parts[0], newer ones in content.
type HistoryMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Parts   []string `json:"parts"`
}

// ChatResult is the agent's reply plus every tool call it made.
type ChatResult struct {
	Response  string                 `json:"response"`
	ToolCalls []model.ToolCallRecord `json:"tool_calls"`
}

// Service orchestrates the tool-calling conversation loop.
type Service struct {
	llm      service.ChatProvider
	executor *Executor
	db       *gorm.DB
	logger   *zap.Logger
}

// NewService creates the agent Service.
func NewService(llm service.ChatProvider, executor *Executor, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{llm: llm, executor: executor, db: db, logger: logger}
}

// Chat runs one agent turn: the model either answers directly or requests
// tools, which are executed and summarized in a second model call. Assistant
// text that merely describes a tool call is parsed and executed the same way.
func (s *Service) Chat(ctx context.Context, userID, message string, history []HistoryMessage) (*ChatResult, error) {
	messages := []service.Message{{Role: "system", Content: systemInstruction}}
	for _, h := range history {
		messages = append(messages, normalizeHistory(h))
	}
	messages = append(messages, service.Message{Role: "user", Content: message})

	s.saveMessage(ctx, userID, "user", message, nil)

	reply, err := s.llm.Chat(ctx, &service.ChatRequest{
		Messages:   messages,
		Tools:      toolDefinitions(),
		ToolChoice: "auto",
	})
	if err != nil {
		return nil, err
	}

	var toolRecords []model.ToolCallRecord
	finalText := reply.Content

	if len(reply.ToolCalls) > 0 {
		messages = append(messages, *reply)

		for _, call := range reply.ToolCalls {
			args := map[string]interface{}{}
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				s.logger.Warn("unparseable tool arguments",
					zap.String("tool", call.Function.Name),
					zap.String("arguments", call.Function.Arguments))
				args = map[string]interface{}{}
			}

			result := s.executor.Execute(ctx, call.Function.Name, args, userID)
			toolRecords = append(toolRecords, model.ToolCallRecord{
				Tool:   call.Function.Name,
				Args:   args,
				Result: result,
			})

			messages = append(messages, service.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    stringifyResult(result),
			})
		}

		finalText, err = s.summarize(ctx, messages)
		if err != nil {
			return nil, err
		}
	} else if inv, ok := ParseTextToolCall(reply.Content, knownTools()); ok {
		s.logger.Info("detected text-based tool call", zap.String("tool", inv.Name))

		result := s.executor.Execute(ctx, inv.Name, inv.Args, userID)
		toolRecords = append(toolRecords, model.ToolCallRecord{
			Tool:   inv.Name,
			Args:   inv.Args,
			Result: result,
		})

		messages = append(messages, service.Message{
			Role:    "system",
			Content: fmt.Sprintf("Tool '%s' output: %s", inv.Name, stringifyResult(result)),
		})

		finalText, err = s.summarize(ctx, messages)
		if err != nil {
			return nil, err
		}
	}

	s.saveMessage(ctx, userID, "agent", finalText, toolRecords)

	return &ChatResult{Response: finalText, ToolCalls: toolRecords}, nil
}

// History returns the stored conversation for a user, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return messages, nil
}

// summarize asks the model for the final user-facing text after tool results
// were appended.
func (s *Service) summarize(ctx context.Context, messages []service.Message) (string, error) {
	reply, err := s.llm.Chat(ctx, &service.ChatRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// saveMessage persists one turn. History is best effort: a storage failure
// must not break the conversation.
func (s *Service) saveMessage(ctx context.Context, userID, role, content string, toolCalls []model.ToolCallRecord) {
	msg := &model.ChatMessage{
		UserID:    userID,
		Role:      role,
		Content:   content,
		ToolCalls: model.JSONBToolCalls(toolCalls),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		s.logger.Warn("failed to save chat message", zap.Error(err))
	}
}

// normalizeHistory maps frontend roles onto chat roles and pulls text out of
// whichever field the client used.
func normalizeHistory(h HistoryMessage) service.Message {
	role := "user"
	if h.Role == "agent" || h.Role == "model" || h.Role == "assistant" {
		role = "assistant"
	}

	content := h.Content
	if len(h.Parts) > 0 {
		content = h.Parts[0]
	}
	return service.Message{Role: role, Content: content}
}

func stringifyResult(result interface{}) string {
	if s, ok := result.(string); ok {
		return s
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}
