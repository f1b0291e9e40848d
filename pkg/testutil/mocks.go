package testutil

import (
	"context"
	"sync"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// MockTierClassifier is a mock implementation of router.TierClassifier for testing
type MockTierClassifier struct {
	ClassifyFunc func(ctx context.Context, text string) (*types.TierResult, error)

	mu        sync.Mutex
	CallCount int
	LastText  string
}

func (m *MockTierClassifier) Classify(ctx context.Context, text string) (*types.TierResult, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastText = text
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, text)
	}
	// Default: a confident fixed label
	return &types.TierResult{Label: "mock_label", Confidence: 0.99}, nil
}

// Calls returns the number of Classify invocations so far.
func (m *MockTierClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient for testing
type MockEmbeddingClient struct {
	GenerateEmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

	mu        sync.Mutex
	CallCount int
	LastText  string
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastText = text
	m.mu.Unlock()

	if m.GenerateEmbeddingFunc != nil {
		return m.GenerateEmbeddingFunc(ctx, text)
	}
	// Default: return a simple embedding based on text length
	embedding := make([]float32, 10)
	for i := range embedding {
		embedding[i] = float32(len(text)) / 100.0
	}
	return embedding, nil
}

// MockVectorClient is a mock implementation of VectorClient for testing
type MockVectorClient struct {
	SearchFunc func(ctx context.Context, vector []float32, topK int) ([]types.VectorMatch, error)
	UpsertFunc func(ctx context.Context, id string, vector []float32, metadata map[string]any) error

	mu          sync.Mutex
	SearchCount int
	UpsertCount int
	Storage     map[string]struct {
		Vector   []float32
		Metadata map[string]any
	}
}

func NewMockVectorClient() *MockVectorClient {
	return &MockVectorClient{
		Storage: make(map[string]struct {
			Vector   []float32
			Metadata map[string]any
		}),
	}
}

func (m *MockVectorClient) Search(ctx context.Context, vector []float32, topK int) ([]types.VectorMatch, error) {
	m.mu.Lock()
	m.SearchCount++
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, vector, topK)
	}

	// Default: return empty results (no neighbor)
	return []types.VectorMatch{}, nil
}

func (m *MockVectorClient) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	m.mu.Lock()
	m.UpsertCount++
	m.Storage[id] = struct {
		Vector   []float32
		Metadata map[string]any
	}{Vector: vector, Metadata: metadata}
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, id, vector, metadata)
	}
	return nil
}
