package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/epicourier-team/epicourier-backend/internal/agent"
)

// AgentHandler serves the conversational assistant endpoints.
type AgentHandler struct {
	agent     *agent.Service
	rateLimit gin.HandlerFunc
	logger    *zap.Logger
}

// NewAgentHandler creates an AgentHandler. rateLimit may be nil.
func NewAgentHandler(agentService *agent.Service, rateLimit gin.HandlerFunc, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{agent: agentService, rateLimit: rateLimit, logger: logger}
}

func (h *AgentHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/agent")
	{
		if h.rateLimit != nil {
			group.POST("/chat", h.rateLimit, h.Chat)
		} else {
			group.POST("/chat", h.Chat)
		}
		group.GET("/history", h.History)
	}
}

func (h *AgentHandler) Chat(c *gin.Context) {
	var req struct {
		UserID  string                 `json:"user_id"`
		Message string                 `json:"message"`
		History []agent.HistoryMessage `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and message are required"})
		return
	}

	result, err := h.agent.Chat(c.Request.Context(), req.UserID, req.Message, req.History)
	if err != nil {
		h.logger.Error("agent chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// History returns the stored conversation. Failures degrade to an empty
// history so the chat UI always renders.
func (h *AgentHandler) History(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	rows, err := h.agent.History(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn("failed to load chat history", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"history": []gin.H{}})
		return
	}

	messages := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, gin.H{
			"role":       row.Role,
			"content":    row.Content,
			"tool_calls": row.ToolCalls,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": messages})
}
