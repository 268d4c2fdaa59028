package service

import (
	"context"

	"concierge/internal/model"
	"concierge/internal/repository"
)

// LLMClient is the language-model collaborator
type LLMClient interface {
	// Complete sends one chat completion request, optionally declaring tools
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// Embedder turns text into a fixed-length vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CatalogStore is the read-only catalogue contract used during a chat turn
type CatalogStore interface {
	SearchLexical(ctx context.Context, q repository.LexicalQuery) ([]model.Project, error)
	SearchVector(ctx context.Context, q repository.VectorQuery) ([]model.RankedListing, error)
}

// EmbeddingStore is what the offline indexer needs from the catalogue
type EmbeddingStore interface {
	ProjectsMissingEmbedding(ctx context.Context) ([]model.Project, error)
	AreasMissingEmbedding(ctx context.Context) ([]model.Area, error)
	UpdateProjectEmbedding(ctx context.Context, id string, embedding []float32) error
	UpdateAreaEmbedding(ctx context.Context, id string, embedding []float32) error
	ProvisionVectorIndex(ctx context.Context, opts repository.IndexOptions) (*model.ProvisionReport, error)
}

// CompletionRequest is a provider-neutral chat completion request
type CompletionRequest struct {
	Messages    []ChatMessage
	Tools       []Tool
	Temperature float64
	MaxTokens   int
}

// Completion is the first choice of a chat completion
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	Model        string
	FinishReason string
}

// Ensure implementations satisfy the collaborator contracts
var (
	_ LLMClient      = (*OpenAIClient)(nil)
	_ Embedder       = (*OpenAIClient)(nil)
	_ Embedder       = (*CachedEmbedder)(nil)
	_ CatalogStore   = (*repository.PostgresRepository)(nil)
	_ EmbeddingStore = (*repository.PostgresRepository)(nil)
)
