package providers

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// AzureProvider implements Completer against an Azure OpenAI deployment.
// Tool definitions are not forwarded on this backend; agents fall back to
// plain text responses.
type AzureProvider struct {
	client         *azopenai.Client
	deploymentName string
	temperature    float32
	maxTokens      int32
}

// NewAzureProvider creates a provider for an Azure OpenAI deployment.
func NewAzureProvider(endpoint, apiKey, deploymentName string, temperature float64, maxTokens int) (*AzureProvider, error) {
	if endpoint == "" || apiKey == "" || deploymentName == "" {
		return nil, fmt.Errorf("providers: azure endpoint, API key and deployment name are all required")
	}

	keyCredential := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureProvider{
		client:         client,
		deploymentName: deploymentName,
		temperature:    float32(temperature),
		maxTokens:      int32(maxTokens),
	}, nil
}

// Complete runs one chat completion call against the deployment.
func (p *AzureProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := p.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		Messages:       p.buildMessages(req),
		MaxTokens:      to.Ptr(p.maxTokens),
		Temperature:    to.Ptr(p.temperature),
		DeploymentName: to.Ptr(p.deploymentName),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("azure completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return nil, fmt.Errorf("empty response from azure deployment")
	}

	return &Completion{Text: *resp.Choices[0].Message.Content}, nil
}

// StreamComplete runs one streaming chat completion call, delivering delta
// chunks in order through onChunk.
func (p *AzureProvider) StreamComplete(ctx context.Context, req CompletionRequest, onChunk func(string) error) error {
	stream, err := p.client.GetChatCompletionsStream(ctx, azopenai.ChatCompletionsOptions{
		Messages:       p.buildMessages(req),
		MaxTokens:      to.Ptr(p.maxTokens),
		Temperature:    to.Ptr(p.temperature),
		DeploymentName: to.Ptr(p.deploymentName),
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to start azure stream: %w", err)
	}
	defer stream.ChatCompletionsStream.Close()

	for {
		resp, err := stream.ChatCompletionsStream.Read()
		if err != nil {
			if err == context.Canceled {
				return nil
			}
			return fmt.Errorf("error reading azure stream: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		if resp.Choices[0].Delta != nil && resp.Choices[0].Delta.Content != nil {
			if err := onChunk(*resp.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
		if resp.Choices[0].FinishReason != nil {
			break
		}
	}

	return nil
}

// buildMessages converts the request into Azure chat message classifications.
func (p *AzureProvider) buildMessages(req CompletionRequest) []azopenai.ChatRequestMessageClassification {
	messages := make([]azopenai.ChatRequestMessageClassification, 0, len(req.History)+2)

	if req.SystemPrompt != "" {
		messages = append(messages, &azopenai.ChatRequestSystemMessage{
			Content: to.Ptr(req.SystemPrompt),
		})
	}

	for _, msg := range req.History {
		switch msg.Role {
		case "system":
			messages = append(messages, &azopenai.ChatRequestSystemMessage{
				Content: to.Ptr(msg.Content),
			})
		case "assistant":
			messages = append(messages, &azopenai.ChatRequestAssistantMessage{
				Content: to.Ptr(msg.Content),
			})
		default:
			messages = append(messages, &azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(msg.Content),
			})
		}
	}

	return append(messages, &azopenai.ChatRequestUserMessage{
		Content: azopenai.NewChatRequestUserMessageContent(req.Input),
	})
}
