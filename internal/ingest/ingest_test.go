package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/knowledge"
	"github.com/askdoc/askdoc/internal/log"
	"github.com/askdoc/askdoc/internal/testutil"
)

type fakeStore struct {
	docs       []knowledge.Document
	pending    []knowledge.Document
	chunks     []knowledge.Chunk
	insertErr  error
	pendingErr error
	chunkErr   error
	// failChunksFor makes InsertChunk fail for one document ID.
	failChunksFor int64
}

func (f *fakeStore) InsertDocument(ctx context.Context, doc knowledge.Document) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	doc.ID = int64(len(f.docs) + 1)
	f.docs = append(f.docs, doc)
	return doc.ID, nil
}

func (f *fakeStore) DocumentsWithoutChunks(ctx context.Context) ([]knowledge.Document, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	return f.pending, nil
}

func (f *fakeStore) InsertChunk(ctx context.Context, chunk knowledge.Chunk) (int64, error) {
	if f.chunkErr != nil {
		return 0, f.chunkErr
	}
	if f.failChunksFor != 0 && chunk.DocumentID == f.failChunksFor {
		return 0, errors.New("insert failed")
	}
	f.chunks = append(f.chunks, chunk)
	return int64(len(f.chunks)), nil
}

func newTestIngestor(t *testing.T, store DocumentStore, embedder *testutil.MockEmbedder) *Ingestor {
	t.Helper()
	in, err := New(Config{
		Store:        store,
		Embedder:     embedder,
		ChunkSize:    100,
		ChunkOverlap: 20,
		Logger:       log.NewNop(),
	})
	require.NoError(t, err)
	return in
}

func TestNewValidatesConfig(t *testing.T) {
	store := &fakeStore{}
	embedder := &testutil.MockEmbedder{}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing store", Config{Embedder: embedder, ChunkSize: 100}},
		{"missing embedder", Config{Store: store, ChunkSize: 100}},
		{"zero chunk size", Config{Store: store, Embedder: embedder, ChunkSize: 0}},
		{"overlap not below size", Config{Store: store, Embedder: embedder, ChunkSize: 100, ChunkOverlap: 100}},
		{"negative overlap", Config{Store: store, Embedder: embedder, ChunkSize: 100, ChunkOverlap: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\nsome content"), 0o644))

	store := &fakeStore{}
	in := newTestIngestor(t, store, &testutil.MockEmbedder{})

	id, err := in.AddFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, store.docs, 1)
	doc := store.docs[0]
	assert.Equal(t, "notes.md", doc.Filename)
	assert.Equal(t, "# Notes\nsome content", doc.Content)
	assert.Equal(t, int64(20), doc.Size)
	assert.Equal(t, "markdown", doc.FileType)
}

func TestAddFileErrors(t *testing.T) {
	dir := t.TempDir()
	in := newTestIngestor(t, &fakeStore{}, &testutil.MockEmbedder{})

	t.Run("missing file", func(t *testing.T) {
		_, err := in.AddFile(context.Background(), filepath.Join(dir, "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "blank.txt")
		require.NoError(t, os.WriteFile(path, []byte("  \n "), 0o644))
		_, err := in.AddFile(context.Background(), path)
		assert.ErrorContains(t, err, "empty")
	})
}

func TestFileType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"report.pdf", "pdf"},
		{"photo.PNG", "image"},
		{"readme.md", "markdown"},
		{"data.csv", "text"},
		{"noext", "text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fileType(tt.path), tt.path)
	}
}

func TestEmbedPending(t *testing.T) {
	store := &fakeStore{pending: []knowledge.Document{
		{ID: 1, Filename: "a.txt", Content: "short document"},
		{ID: 2, Filename: "b.txt", Content: "another short one"},
	}}
	embedder := &testutil.MockEmbedder{}
	in := newTestIngestor(t, store, embedder)

	n, err := in.EmbedPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, store.chunks, 2)
	first := store.chunks[0]
	assert.Equal(t, int64(1), first.DocumentID)
	assert.Equal(t, "short document", first.Content)
	assert.Equal(t, int32(0), first.ChunkIndex)
	assert.Equal(t, "a.txt", first.Metadata.Filename)
	assert.Equal(t, "chunk 1/1", first.Metadata.ChunkLabel)
	assert.Len(t, first.Embedding.Slice(), 768)
}

func TestEmbedPendingSkipsFailingDocument(t *testing.T) {
	store := &fakeStore{
		pending: []knowledge.Document{
			{ID: 1, Filename: "bad.txt", Content: "doomed"},
			{ID: 2, Filename: "good.txt", Content: "fine"},
		},
		failChunksFor: 1,
	}
	in := newTestIngestor(t, store, &testutil.MockEmbedder{})

	n, err := in.EmbedPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, store.chunks, 1)
	assert.Equal(t, int64(2), store.chunks[0].DocumentID)
}

func TestEmbedPendingEmbedderFailure(t *testing.T) {
	store := &fakeStore{pending: []knowledge.Document{
		{ID: 1, Filename: "a.txt", Content: "text"},
	}}
	embedder := &testutil.MockEmbedder{Err: errors.New("quota exceeded")}
	in := newTestIngestor(t, store, embedder)

	// The failing document is skipped, not fatal.
	n, err := in.EmbedPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.chunks)
}

func TestEmbedPendingNothingToDo(t *testing.T) {
	in := newTestIngestor(t, &fakeStore{}, &testutil.MockEmbedder{})
	n, err := in.EmbedPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEmbedPendingListFailure(t *testing.T) {
	store := &fakeStore{pendingErr: errors.New("connection refused")}
	in := newTestIngestor(t, store, &testutil.MockEmbedder{})
	_, err := in.EmbedPending(context.Background())
	assert.Error(t, err)
}
