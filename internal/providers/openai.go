package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider implements Completer against any OpenAI-compatible API
// through langchaingo.
type OpenAIProvider struct {
	client      *openai.LLM
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
// baseURL may be empty for the default OpenAI API.
func NewOpenAIProvider(token, baseURL, model string, temperature float64, maxTokens int) (*OpenAIProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("providers: API token is required")
	}

	opts := []openai.Option{openai.WithToken(token)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	return &OpenAIProvider{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Complete runs one completion call, mapping any advertised tools to model
// tool definitions and parsing tool calls out of the response.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	opts := []llms.CallOption{
		llms.WithModel(p.model),
		llms.WithTemperature(p.temperature),
		llms.WithMaxTokens(p.maxTokens),
	}

	if len(req.Tools) > 0 {
		tools := make([]llms.Tool, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			}
		}
		opts = append(opts, llms.WithTools(tools))
	}

	response, err := p.client.GenerateContent(ctx, buildMessages(req), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate completion: %w", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return nil, fmt.Errorf("empty response from completion endpoint")
	}

	choice := response.Choices[0]
	completion := &Completion{Text: choice.Content}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		args := map[string]interface{}{}
		if tc.FunctionCall.Arguments != "" {
			// Malformed arguments degrade to an empty set; the agent's
			// schema validation reports the missing fields.
			_ = json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args)
		}
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			Name:      tc.FunctionCall.Name,
			Arguments: args,
		})
	}

	return completion, nil
}

// StreamComplete runs one streaming completion call, delivering chunks in
// order through onChunk. Tools are not advertised on streaming calls.
func (p *OpenAIProvider) StreamComplete(ctx context.Context, req CompletionRequest, onChunk func(string) error) error {
	opts := []llms.CallOption{
		llms.WithModel(p.model),
		llms.WithTemperature(p.temperature),
		llms.WithMaxTokens(p.maxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}),
	}

	_, err := p.client.GenerateContent(ctx, buildMessages(req), opts...)
	if err != nil {
		return fmt.Errorf("failed to stream completion: %w", err)
	}
	return nil
}

// buildMessages assembles the system prompt, prior turns and current input
// into ordered model messages.
func buildMessages(req CompletionRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.History)+2)

	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}

	for _, msg := range req.History {
		var msgType llms.ChatMessageType
		switch msg.Role {
		case "system":
			msgType = llms.ChatMessageTypeSystem
		case "assistant":
			msgType = llms.ChatMessageTypeAI
		default:
			msgType = llms.ChatMessageTypeHuman
		}
		messages = append(messages, llms.TextParts(msgType, msg.Content))
	}

	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Input))
}
