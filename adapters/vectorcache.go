package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// VectorCacheClassifier is an optional tier that answers from previously
// learned classifications via nearest-neighbor search. The similarity score
// doubles as the confidence, so the router's standard confidence gate is
// what decides hit versus miss; there is no separate cache threshold.
type VectorCacheClassifier struct {
	embedding EmbeddingClient
	vectors   VectorClient
}

// NewVectorCacheClassifier creates the cached tier from its two clients.
func NewVectorCacheClassifier(embedding EmbeddingClient, vectors VectorClient) (*VectorCacheClassifier, error) {
	if embedding == nil {
		return nil, fmt.Errorf("EmbeddingClient is required")
	}
	if vectors == nil {
		return nil, fmt.Errorf("VectorClient is required")
	}
	return &VectorCacheClassifier{embedding: embedding, vectors: vectors}, nil
}

// Classify embeds the text and returns the nearest learned label with the
// similarity score as confidence. No neighbor at all yields UnclassifiedLabel
// with zero confidence, which forces escalation.
func (c *VectorCacheClassifier) Classify(ctx context.Context, text string) (*types.TierResult, error) {
	start := time.Now()

	embedding, err := c.embedding.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	matches, err := c.vectors.Search(ctx, embedding, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector cache: %w", err)
	}

	if len(matches) == 0 {
		return &types.TierResult{
			Label:      UnclassifiedLabel,
			Confidence: 0,
			Latency:    time.Since(start),
		}, nil
	}

	label, ok := matches[0].Metadata["label"].(string)
	if !ok {
		return nil, fmt.Errorf("cached vector %s missing label metadata", matches[0].ID)
	}

	return &types.TierResult{
		Label:      label,
		Confidence: float64(matches[0].Score),
		Latency:    time.Since(start),
	}, nil
}

// Learn stores a classified text so future lookalikes can be answered by
// this tier. Callers typically feed it results that a slower tier produced.
func (c *VectorCacheClassifier) Learn(ctx context.Context, text, label string) error {
	embedding, err := c.embedding.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	metadata := map[string]any{
		"vector_text": text,
		"label":       label,
	}
	return c.vectors.Upsert(ctx, uuid.New().String(), embedding, metadata)
}
