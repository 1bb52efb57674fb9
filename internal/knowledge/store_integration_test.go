package knowledge_test

import (
	"context"
	"math"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/knowledge"
	"github.com/askdoc/askdoc/internal/log"
	"github.com/askdoc/askdoc/internal/testutil"
)

// unitVector returns a 768-dim unit vector pointing along axis.
func unitVector(axis int) []float32 {
	v := make([]float32, knowledge.VectorDimension)
	v[axis] = 1
	return v
}

// mixedVector returns the normalized sum of two axes, cosine similarity
// 1/sqrt(2) to either one.
func mixedVector(a, b int) []float32 {
	v := make([]float32, knowledge.VectorDimension)
	c := float32(1 / math.Sqrt2)
	v[a] = c
	v[b] = c
	return v
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := knowledge.NewStore(testDB.Pool, log.NewNop())

	docID, err := store.InsertDocument(ctx, knowledge.Document{
		Filename: "langs.md",
		Content:  "notes about programming languages",
		Size:     34,
		FileType: "markdown",
	})
	require.NoError(t, err)
	require.Positive(t, docID)

	chunks := []struct {
		content   string
		embedding []float32
	}{
		{"Go was designed at Google.", unitVector(0)},
		{"Go and Rust are both compiled.", mixedVector(0, 1)},
		{"Rust has no garbage collector.", unitVector(1)},
	}
	for i, c := range chunks {
		_, err := store.InsertChunk(ctx, knowledge.Chunk{
			DocumentID: docID,
			Content:    c.content,
			Embedding:  pgvector.NewVector(c.embedding),
			ChunkIndex: int32(i),
			Metadata:   knowledge.Metadata{Filename: "langs.md"},
		})
		require.NoError(t, err)
	}

	t.Run("search orders by similarity and applies threshold", func(t *testing.T) {
		results, err := store.SimilaritySearch(ctx, unitVector(0), 0.5, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "Go was designed at Google.", results[0].Content)
		assert.InDelta(t, 1.0, results[0].Similarity, 0.001)

		assert.Equal(t, "Go and Rust are both compiled.", results[1].Content)
		assert.InDelta(t, 1/math.Sqrt2, results[1].Similarity, 0.001)

		assert.Equal(t, "langs.md", results[0].Metadata.Filename)
	})

	t.Run("limit caps the result count", func(t *testing.T) {
		results, err := store.SimilaritySearch(ctx, unitVector(0), 0.0, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Go was designed at Google.", results[0].Content)
	})

	t.Run("high threshold excludes everything", func(t *testing.T) {
		results, err := store.SimilaritySearch(ctx, unitVector(2), 0.99, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("document lookup round trip", func(t *testing.T) {
		doc, err := store.Document(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, "langs.md", doc.Filename)
		assert.Equal(t, "markdown", doc.FileType)
		assert.False(t, doc.CreateAt.IsZero())
	})

	t.Run("chunks by document in ordinal order", func(t *testing.T) {
		got, err := store.ChunksByDocument(ctx, docID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, c := range got {
			assert.Equal(t, int32(i), c.ChunkIndex)
		}
	})

	t.Run("count chunks", func(t *testing.T) {
		count, err := store.CountChunks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("duplicate chunk index rejected", func(t *testing.T) {
		_, err := store.InsertChunk(ctx, knowledge.Chunk{
			DocumentID: docID,
			Content:    "duplicate",
			Embedding:  pgvector.NewVector(unitVector(3)),
			ChunkIndex: 0,
		})
		assert.Error(t, err)
	})

	t.Run("pending list skips embedded documents", func(t *testing.T) {
		pendingID, err := store.InsertDocument(ctx, knowledge.Document{
			Filename: "pending.txt",
			Content:  "not embedded yet",
			Size:     16,
			FileType: "text",
		})
		require.NoError(t, err)

		docs, err := store.DocumentsWithoutChunks(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, pendingID, docs[0].ID)
	})
}
