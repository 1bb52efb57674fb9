// Package testutil provides in-memory fakes for the external AI providers.
package testutil

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/askdoc/askdoc/internal/knowledge"
)

// MockEmbedder is an ai.Embedder that returns a fixed vector. Configure
// Err or Empty to exercise failure paths.
type MockEmbedder struct {
	// Vector is returned for every input. Defaults to a unit vector when nil.
	Vector []float32
	// Err, when set, is returned instead of an embedding.
	Err error
	// Empty makes Embed return a response with no embeddings.
	Empty bool

	Calls     int
	LastInput string
}

var _ ai.Embedder = (*MockEmbedder)(nil)

func (m *MockEmbedder) Name() string { return "mock/embedder" }

func (m *MockEmbedder) Register(r api.Registry) {}

func (m *MockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.Calls++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.LastInput = req.Input[0].Content[0].Text
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Empty {
		return &ai.EmbedResponse{}, nil
	}

	vec := m.Vector
	if vec == nil {
		vec = make([]float32, knowledge.VectorDimension)
		vec[0] = 1
	}

	embeddings := make([]*ai.Embedding, len(req.Input))
	for i := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: vec}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}
