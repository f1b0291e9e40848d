package adapters

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FrenchMajesty/adaptive-classifier/adapters/pinecone"
	"github.com/FrenchMajesty/adaptive-classifier/adapters/voyage"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/router"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// VoyageEmbeddingAdapter adapts the Voyage client to the EmbeddingClient interface
type VoyageEmbeddingAdapter struct {
	client interface {
		GenerateEmbedding(ctx context.Context, text string, embeddingType voyage.VoyageEmbeddingType) ([]float32, error)
	}
}

// NewVoyageEmbeddingAdapter creates a new adapter for Voyage AI
func NewVoyageEmbeddingAdapter(apiKey *string) (*VoyageEmbeddingAdapter, error) {
	key, err := loadEnvVar(apiKey, "VOYAGEAI_API_KEY")
	if err != nil {
		return nil, err
	}

	return &VoyageEmbeddingAdapter{
		client: voyage.NewEmbeddingService(*key),
	}, nil
}

// GenerateEmbedding implements EmbeddingClient interface
func (a *VoyageEmbeddingAdapter) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return a.client.GenerateEmbedding(ctx, text, voyage.VoyageEmbeddingTypeDefault)
}

// PineconeVectorAdapter adapts the Pinecone client to the VectorClient interface
type PineconeVectorAdapter struct {
	index interface {
		Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any, includeMetadata bool) ([]pinecone.QueryMatch, error)
		Upsert(ctx context.Context, vectors []*pinecone.Vector) error
	}
}

// NewPineconeVectorAdapter creates a new adapter for Pinecone
func NewPineconeVectorAdapter(apiKey *string, host *string, namespace string) (*PineconeVectorAdapter, error) {
	key, err := loadEnvVar(apiKey, "PINECONE_API_KEY")
	if err != nil {
		return nil, err
	}

	h, err := loadEnvVar(host, "PINECONE_HOST")
	if err != nil {
		return nil, err
	}

	service, err := pinecone.NewPineconeService(*key)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone service: %w", err)
	}

	index, err := service.ForIndex(*h, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}

	return &PineconeVectorAdapter{index: index}, nil
}

// Search implements VectorClient interface
func (a *PineconeVectorAdapter) Search(ctx context.Context, vector []float32, topK int) ([]types.VectorMatch, error) {
	matches, err := a.index.Search(ctx, vector, topK, nil, true)
	if err != nil {
		return nil, err
	}

	// Convert Pinecone matches to our VectorMatch type
	results := make([]types.VectorMatch, len(matches))
	for i, match := range matches {
		metadata := make(map[string]any)
		if match.Vector != nil && match.Vector.Metadata != nil {
			metadata = match.Vector.Metadata.AsMap()
		}

		results[i] = types.VectorMatch{
			ID:       match.Vector.Id,
			Score:    match.Score,
			Metadata: metadata,
		}
	}

	return results, nil
}

// Upsert implements VectorClient interface
func (a *PineconeVectorAdapter) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	metadataStruct, err := structpb.NewStruct(metadata)
	if err != nil {
		return err
	}

	vectors := []*pinecone.Vector{
		{
			Id:     id,
			Values: vector,
			Metadata: &pinecone.Metadata{
				Fields: metadataStruct.Fields,
			},
		},
	}

	return a.index.Upsert(ctx, vectors)
}

// BuildClassifiers constructs a tier classifier for every tier named in cfg,
// keyed by tier id, ready to hand to router.NewEngine. Recognized ids:
// "rules", "zero_shot", "fine_tuned" (FINETUNED_MODEL env var), and
// "vector_cache" (PINECONE_NAMESPACE env var, default "classification").
func BuildClassifiers(cfg router.RoutingConfig) (map[string]router.TierClassifier, error) {
	classifiers := make(map[string]router.TierClassifier, len(cfg.Tiers))

	for _, tier := range cfg.Tiers {
		var (
			c   router.TierClassifier
			err error
		)
		switch tier.ID {
		case "rules":
			c, err = NewRuleClassifier(DefaultRules())
		case "zero_shot":
			c, err = NewZeroShotClassifier(nil)
		case "fine_tuned":
			c, err = NewFineTunedClassifier(nil, os.Getenv("FINETUNED_MODEL"))
		case "vector_cache":
			c, err = buildVectorCache()
		default:
			return nil, fmt.Errorf("no adapter known for tier %q", tier.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build tier %q: %w", tier.ID, err)
		}
		classifiers[tier.ID] = c
	}

	return classifiers, nil
}

func buildVectorCache() (*VectorCacheClassifier, error) {
	embedding, err := NewVoyageEmbeddingAdapter(nil)
	if err != nil {
		return nil, err
	}

	namespace := os.Getenv("PINECONE_NAMESPACE")
	if namespace == "" {
		namespace = "classification"
	}
	vectors, err := NewPineconeVectorAdapter(nil, nil, namespace)
	if err != nil {
		return nil, err
	}

	return NewVectorCacheClassifier(embedding, vectors)
}

// loadEnvVar loads an environment variable into a pointer if no value is provided
func loadEnvVar(target *string, envKey string) (*string, error) {
	if target == nil {
		envVar := os.Getenv(envKey)
		if envVar == "" {
			return nil, fmt.Errorf("%s environment variable not set and no value provided", envKey)
		}
		return &envVar, nil
	}
	return target, nil
}
