package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sous-system/config"

	"github.com/gin-gonic/gin"
)

type Agent interface {
	Chat(ctx context.Context, message string) (string, error)
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type AgentHTTPHandler struct {
	agent Agent
}

func NewAgentHTTPHandler(agent Agent) *AgentHTTPHandler {
	return &AgentHTTPHandler{
		agent: agent,
	}
}

// Chat always answers 200 once the request is valid. Agent failures are
// reported in the response text.
func (h *AgentHTTPHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	answer, err := h.agent.Chat(ctx, req.Message)
	if err != nil {
		config.LogError(config.GetLogger(), "gateway", "Chat", "agent chat", nil, err)
		answer = fmt.Sprintf("I'm having trouble connecting to my brain right now. Error: %v", err)
	}

	c.JSON(http.StatusOK, ChatResponse{Response: answer})
}
