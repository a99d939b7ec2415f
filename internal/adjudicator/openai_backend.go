package adjudicator

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend adapts an OpenAI-compatible chat completion endpoint to the
// Backend interface, reusing the teacher's reasoning-model special-casing:
// o1/o4/gpt-5 family models reject response_format and system messages, so
// the system prompt is folded into the user message for those.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend builds a Backend for the given OpenAI-compatible model.
func NewOpenAIBackend(client *openai.Client, model string) *OpenAIBackend {
	return &OpenAIBackend{client: client, model: model}
}

func (b *OpenAIBackend) Name() string { return "openai:" + b.model }

func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	isReasoningModel := isReasoningModelName(b.model)

	var request openai.ChatCompletionRequest
	if isReasoningModel {
		request = openai.ChatCompletionRequest{
			Model: b.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: systemPrompt + "\n\n" + userPrompt},
			},
		}
	} else {
		temperature := float32(0)
		request = openai.ChatCompletionRequest{
			Model:       b.model,
			Temperature: temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, request)
	if err != nil {
		wrapped := fmt.Errorf("openai completion failed: %w", err)
		if IsRetryable(err) {
			return "", &RetryableError{Err: wrapped}
		}
		return "", wrapped
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModelName(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}
