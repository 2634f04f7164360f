package adapters

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

// OpenAIProvider adapts the OpenAI chat-completion API to the Provider port.
// The whole prompt travels as a single user message; the engine already
// folded system instructions, context, and transcript into it.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, opts ports.Options) (ports.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxNewTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{}, fmt.Errorf("openai returned no choices")
	}

	return ports.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: &ports.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

var _ ports.Provider = (*OpenAIProvider)(nil)
