package pinecone

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// Vector mirrors the SDK vector type so callers don't import the SDK.
type Vector = pinecone.Vector

// Metadata mirrors the SDK metadata type.
type Metadata = pinecone.Metadata

// QueryMatch is one scored result of a similarity search.
type QueryMatch = pinecone.ScoredVector

// pineconeService wraps the official SDK client.
type pineconeService struct {
	client *pinecone.Client
}

// NewPineconeService creates a new Pinecone service instance using the official SDK
func NewPineconeService(apiKey string) (*pineconeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone api key must not be empty")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pinecone client: %w", err)
	}

	return &pineconeService{client: client}, nil
}

// ForIndex returns an operations handle connected to one index namespace.
func (ps *pineconeService) ForIndex(host, namespace string) (*indexOperations, error) {
	conn, err := ps.client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index %s: %w", host, err)
	}

	return &indexOperations{index: conn}, nil
}

// indexOperations performs vector operations against one index connection.
type indexOperations struct {
	index *pinecone.IndexConnection
}

// Search performs a vector similarity search in the index
func (idx *indexOperations) Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any, includeMetadata bool) ([]QueryMatch, error) {
	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: includeMetadata,
	}
	if filter != nil {
		metadataFilter, err := structpb.NewStruct(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to build metadata filter: %w", err)
		}
		queryRequest.MetadataFilter = metadataFilter
	}

	queryResponse, err := idx.index.QueryByVectorValues(ctx, queryRequest)
	if err != nil {
		return nil, err
	}

	matches := make([]QueryMatch, len(queryResponse.Matches))
	for i, match := range queryResponse.Matches {
		matches[i] = *match
	}
	return matches, nil
}

// Upsert stores vectors in the index
func (idx *indexOperations) Upsert(ctx context.Context, vectors []*Vector) error {
	_, err := idx.index.UpsertVectors(ctx, vectors)
	return err
}
