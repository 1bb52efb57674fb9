// Package retrieval embeds a query and looks up the most similar stored
// chunks. It is a thin composition of the embedding provider and the vector
// store; ranking and threshold filtering are store guarantees.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/askdoc/askdoc/internal/knowledge"
)

// Sentinel errors distinguishing which collaborator failed. The session
// layer degrades to an empty context either way but logs them differently.
var (
	// ErrEmbedding indicates the query could not be vectorized.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore indicates the similarity search was unreachable or failed.
	ErrStore = errors.New("similarity search failed")
)

// Searcher is the vector-store capability the engine needs.
// *knowledge.Store satisfies it.
type Searcher interface {
	SimilaritySearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]knowledge.Result, error)
}

// Engine retrieves the chunks most relevant to a query. It holds no state
// between calls and keeps no cache: every call re-embeds the query and
// re-queries the store.
type Engine struct {
	embedder ai.Embedder
	store    Searcher
	logger   *slog.Logger
}

// New creates an Engine. A nil logger falls back to slog.Default().
func New(embedder ai.Embedder, store Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Retrieve embeds the query and returns up to limit chunks whose similarity
// meets the threshold, ordered by descending similarity. Zero results is a
// valid outcome, not an error.
//
// Failures return an empty result set and an error wrapping ErrEmbedding or
// ErrStore so the caller can log the cause and continue without context.
func (e *Engine) Retrieve(ctx context.Context, query string, threshold float64, limit int) ([]knowledge.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query must not be empty")
	}

	embedding, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	results, err := e.store.SimilaritySearch(ctx, embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	e.logger.Debug("retrieved context chunks",
		"query_length", len(query),
		"hits", len(results),
		"threshold", threshold,
		"limit", limit)
	return results, nil
}

// embedQuery generates the query embedding via the configured embedder.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(query, nil),
		},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("provider returned empty embedding")
	}

	return resp.Embeddings[0].Embedding, nil
}
