package handler_test

import (
	"context"
	"errors"
	"testing"

	"sous-system/internal/database/models"
	"sous-system/internal/services/agent/handler"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter replays replies in order and records every request.
type scriptedCompleter struct {
	replies  []openai.ChatCompletionMessage
	err      error
	requests []openai.ChatCompletionRequest
}

func (s *scriptedCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: reply}},
	}, nil
}

func toolCall(id, name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:       id,
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestChat_NoClient(t *testing.T) {
	agent := handler.NewAgentHandler(nil, newToolset(t), "gpt-4o", 5)

	_, err := agent.Chat(context.Background(), "hi")
	assert.ErrorIs(t, err, handler.ErrNoLLMClient)
}

func TestChat_DirectAnswer(t *testing.T) {
	llm := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, Content: "Hello!"},
	}}
	agent := handler.NewAgentHandler(llm, newToolset(t), "gpt-4o", 5)

	got, err := agent.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", got)
	require.Len(t, llm.requests, 1)
	assert.Equal(t, "gpt-4o", llm.requests[0].Model)
	assert.Len(t, llm.requests[0].Tools, 3)
}

func TestChat_ToolRoundTrip(t *testing.T) {
	tools := newToolset(t, models.InventoryItem{Name: "Beef Patty", Unit: "lb", CurrentStock: 18, ParLevel: 40})
	llm := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		toolCall("call_1", handler.ToolInventoryStatus, "{}"),
		{Role: openai.ChatMessageRoleAssistant, Content: "Order more beef."},
	}}
	agent := handler.NewAgentHandler(llm, tools, "gpt-4o", 5)

	got, err := agent.Chat(context.Background(), "what is low?")
	require.NoError(t, err)
	assert.Equal(t, "Order more beef.", got)

	require.Len(t, llm.requests, 2)
	msgs := llm.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "Beef Patty: Current 18 lb (Par: 40)")
}

func TestChat_InvalidToolArguments(t *testing.T) {
	llm := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		toolCall("call_1", handler.ToolPredictReorder, `{"item_name": ""}`),
		{Role: openai.ChatMessageRoleAssistant, Content: "Which item?"},
	}}
	agent := handler.NewAgentHandler(llm, newToolset(t), "gpt-4o", 5)

	_, err := agent.Chat(context.Background(), "reorder?")
	require.NoError(t, err)

	msgs := llm.requests[1].Messages
	assert.Contains(t, msgs[len(msgs)-1].Content, "item_name is required")
}

func TestChat_StepLimit(t *testing.T) {
	llm := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		toolCall("call_1", handler.ToolInventoryStatus, ""),
	}}
	agent := handler.NewAgentHandler(llm, newToolset(t), "gpt-4o", 2)

	_, err := agent.Chat(context.Background(), "loop")
	assert.ErrorIs(t, err, handler.ErrStepLimit)
	assert.Len(t, llm.requests, 2)
}

func TestChat_UpstreamError(t *testing.T) {
	llm := &scriptedCompleter{err: errors.New("connection refused")}
	agent := handler.NewAgentHandler(llm, newToolset(t), "gpt-4o", 5)

	_, err := agent.Chat(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
