package adjudicator

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicBackend adapts the Anthropic Messages API to the Backend
// interface, giving the round-robin a second, independent provider to fall
// over to when the OpenAI-compatible backend is rate-limited or down.
type AnthropicBackend struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicBackend builds a Backend for the given Anthropic model.
func NewAnthropicBackend(client *anthropic.Client, model anthropic.Model) *AnthropicBackend {
	return &AnthropicBackend{client: client, model: model}
}

func (b *AnthropicBackend) Name() string { return "anthropic:" + string(b.model) }

func (b *AnthropicBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: 512,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		wrapped := fmt.Errorf("anthropic completion failed: %w", err)
		if IsRetryable(err) {
			return "", &RetryableError{Err: wrapped}
		}
		return "", wrapped
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("anthropic completion returned no content blocks")
	}
	return message.Content[0].Text, nil
}
