package voyage

import (
	"context"
	"fmt"

	"github.com/austinfhunter/voyageai"
)

const EMBEDDING_DIMENSIONS = 1024

const VOYAGEAI_EMBEDDING_MODEL = "voyage-3.5-lite"

type VoyageEmbeddingType string

const (
	VoyageEmbeddingTypeDocument VoyageEmbeddingType = "document"
	VoyageEmbeddingTypeQuery    VoyageEmbeddingType = "query"
	VoyageEmbeddingTypeDefault  VoyageEmbeddingType = ""
)

// embeddingService handles generating embeddings for text
type embeddingService struct {
	client     *voyageai.VoyageClient
	dimensions int
	model      string
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(apiKey string) *embeddingService {
	return &embeddingService{
		client: voyageai.NewClient(&voyageai.VoyageClientOpts{
			Key: apiKey,
		}),
		dimensions: EMBEDDING_DIMENSIONS,
		model:      VOYAGEAI_EMBEDDING_MODEL,
	}
}

// SetDimensions sets the dimensions for the embedding model
func (es *embeddingService) SetDimensions(dimensions int) {
	es.dimensions = dimensions
}

// SetModel sets the model for the embedding model
func (es *embeddingService) SetModel(model string) {
	es.model = model
}

// GenerateEmbedding generates an embedding for a single text using VoyageAI
func (es *embeddingService) GenerateEmbedding(ctx context.Context, text string, embeddingType VoyageEmbeddingType) ([]float32, error) {
	inputType := string(embeddingType)
	opts := &voyageai.EmbeddingRequestOpts{
		OutputDimension: &es.dimensions,
	}
	if inputType != "" {
		opts.InputType = &inputType
	}

	embeddings, err := es.client.Embed([]string{text}, es.model, opts)
	if err != nil {
		return nil, fmt.Errorf("could not get embedding: %w", err)
	}
	if len(embeddings.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	return embeddings.Data[0].Embedding, nil
}
