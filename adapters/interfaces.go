// Package adapters provides the concrete classifier tiers the routing engine
// dispatches to, plus the glue that binds third-party clients to the small
// interfaces the tiers consume.
package adapters

import (
	"context"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// EmbeddingClient generates vector embeddings for text
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorClient performs vector similarity search and storage operations
type VectorClient interface {
	Search(ctx context.Context, vector []float32, topK int) ([]types.VectorMatch, error)
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
}
