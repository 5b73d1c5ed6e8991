// Package llm provides language-model capability adapters: an
// OpenAI-compatible client (works against OpenAI, Ollama and other
// compatible endpoints) and an adapter for langchaingo models.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// OpenAIClient implements rag.LLM and rag.Embedder against any
// OpenAI-compatible API.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	dimension      int
	temperature    float32
}

// OpenAIOption configures the OpenAIClient
type OpenAIOption func(*OpenAIClient)

// WithModel sets the chat model
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// WithEmbeddingModel sets the embedding model
func WithEmbeddingModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.embeddingModel = model
	}
}

// WithDimension sets the expected embedding dimension
func WithDimension(dim int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.dimension = dim
	}
}

// WithTemperature sets the sampling temperature for generation
func WithTemperature(temp float32) OpenAIOption {
	return func(c *OpenAIClient) {
		c.temperature = temp
	}
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// baseURL may be empty for the default OpenAI endpoint.
func NewOpenAIClient(apiKey, baseURL string, opts ...OpenAIOption) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		model:          openai.GPT4oMini,
		embeddingModel: string(openai.SmallEmbedding3),
		dimension:      1536,
		temperature:    0.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ rag.LLM      = (*OpenAIClient)(nil)
	_ rag.Embedder = (*OpenAIClient)(nil)
)

// Generate produces a completion for the prompt
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// EmbedDocument embeds a single text
func (c *OpenAIClient) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch of texts
func (c *OpenAIClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// GetDimension returns the configured embedding dimension
func (c *OpenAIClient) GetDimension() int {
	return c.dimension
}
