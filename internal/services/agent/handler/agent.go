package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sous-system/config"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/sirupsen/logrus"
)

const (
	ToolInventoryStatus = "get_inventory_status"
	ToolRevenueTrends   = "get_revenue_trends"
	ToolPredictReorder  = "predict_reorder"

	DefaultMaxSteps = 5
)

const systemPrompt = `You are Sous, an operations assistant for a restaurant.
Answer questions about stock levels, sales and reordering.
Use the available tools to look up live data before answering and never invent numbers.
Keep answers short and practical.`

var (
	ErrNoLLMClient   = errors.New("LLM client is not configured: set OPENAI_API_KEY")
	ErrStepLimit     = errors.New("agent reached the step limit without an answer")
	ErrEmptyResponse = errors.New("LLM returned no choices")
)

// ChatCompleter is the subset of *openai.Client the agent needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func NewOpenAIClient(cfg config.LLMConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoLLMClient
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

// -- Handler --
type AgentHandler struct {
	client   ChatCompleter
	tools    *Toolset
	model    string
	maxSteps int
	logger   *logrus.Logger
}

// NewAgentHandler accepts a nil client; Chat then fails with ErrNoLLMClient.
func NewAgentHandler(client ChatCompleter, tools *Toolset, model string, maxSteps int) *AgentHandler {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &AgentHandler{
		client:   client,
		tools:    tools,
		model:    model,
		maxSteps: maxSteps,
		logger:   config.GetLogger(),
	}
}

// Chat runs a bounded tool-calling loop and returns the model's final text.
func (a *AgentHandler) Chat(ctx context.Context, message string) (string, error) {
	if a.client == nil {
		return "", ErrNoLLMClient
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: message},
	}

	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    toolDefinitions(),
		})
		if err != nil {
			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}

		reply := resp.Choices[0].Message
		if len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			a.logger.WithFields(logrus.Fields{
				"tool": call.Function.Name,
				"step": step,
			}).Debug("agent tool call")

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.callTool(ctx, call),
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	return "", ErrStepLimit
}

func (a *AgentHandler) callTool(ctx context.Context, call openai.ToolCall) string {
	switch call.Function.Name {
	case ToolInventoryStatus:
		return a.tools.InventoryStatus(ctx)

	case ToolRevenueTrends:
		var args struct {
			Days int `json:"days"`
		}
		if err := decodeArgs(call.Function.Arguments, &args); err != nil {
			return fmt.Sprintf("Invalid arguments for %s: %v", ToolRevenueTrends, err)
		}
		return a.tools.RevenueTrends(ctx, args.Days)

	case ToolPredictReorder:
		var args struct {
			ItemName string `json:"item_name"`
		}
		if err := decodeArgs(call.Function.Arguments, &args); err != nil {
			return fmt.Sprintf("Invalid arguments for %s: %v", ToolPredictReorder, err)
		}
		if args.ItemName == "" {
			return fmt.Sprintf("Invalid arguments for %s: item_name is required", ToolPredictReorder)
		}
		return a.tools.PredictReorder(ctx, args.ItemName)

	default:
		return fmt.Sprintf("Unknown tool %q.", call.Function.Name)
	}
}

func decodeArgs(raw string, dst interface{}) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func toolDefinitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolInventoryStatus,
				Description: "List inventory items whose current stock is below par level.",
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: map[string]jsonschema.Definition{},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolRevenueTrends,
				Description: "Daily revenue totals for the recent past, newest day first.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"days": {
							Type:        jsonschema.Integer,
							Description: "Number of days to look back. Defaults to 7.",
						},
					},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        ToolPredictReorder,
				Description: "Estimate days until an inventory item runs out and its stockout date.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"item_name": {
							Type:        jsonschema.String,
							Description: "Inventory item name, e.g. Beef Patty.",
						},
					},
					Required: []string{"item_name"},
				},
			},
		},
	}
}
