package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder produces a fixed-width vector for a piece of text. Implemented
// against an OpenAI-compatible embeddings endpoint; the adjudicator's
// backends reuse the same client type for completions.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// OpenAIEmbedder adapts an OpenAI-compatible embeddings endpoint to Embedder.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds an Embedder for the given model name.
func NewOpenAIEmbedder(client *openai.Client, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model}
}

func (e *OpenAIEmbedder) ModelName() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding request returned no vectors")
	}
	vector := resp.Data[0].Embedding
	if len(vector) != Dimension {
		return nil, fmt.Errorf("embedding model %q returned dimension %d, want %d", e.model, len(vector), Dimension)
	}
	return vector, nil
}
