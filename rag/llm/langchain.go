package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// LangchainModel adapts a langchaingo llms.Model to rag.LLM, so any
// provider supported there can back extraction, planning and synthesis.
type LangchainModel struct {
	model llms.Model
	opts  []llms.CallOption
}

// NewLangchainModel wraps a langchaingo model
func NewLangchainModel(model llms.Model, opts ...llms.CallOption) *LangchainModel {
	return &LangchainModel{model: model, opts: opts}
}

var _ rag.LLM = (*LangchainModel)(nil)

// Generate produces a completion for the prompt
func (m *LangchainModel) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts("human", prompt),
	}
	resp, err := m.model.GenerateContent(ctx, messages, m.opts...)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate content returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// LangchainEmbedder adapts a langchaingo embedding client to rag.Embedder.
type LangchainEmbedder struct {
	client    embeddingClient
	dimension int
}

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewLangchainEmbedder wraps a langchaingo embedding-capable client
func NewLangchainEmbedder(client embeddingClient, dimension int) *LangchainEmbedder {
	return &LangchainEmbedder{client: client, dimension: dimension}
}

var _ rag.Embedder = (*LangchainEmbedder)(nil)

// EmbedDocument embeds a single text
func (e *LangchainEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch of texts
func (e *LangchainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("create embedding failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(vectors), len(texts))
	}
	return vectors, nil
}

// GetDimension returns the configured embedding dimension
func (e *LangchainEmbedder) GetDimension() int {
	return e.dimension
}
