// Package ingest loads files into the document store and embeds their
// chunks for retrieval. Ingestion and embedding are separate passes: files
// land as documents first, then EmbedPending vectorizes whatever has no
// chunks yet, so a failed embedding run can simply be re-run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/askdoc/askdoc/internal/knowledge"
)

// DocumentStore is the persistence surface ingestion needs.
// *knowledge.Store satisfies it.
type DocumentStore interface {
	InsertDocument(ctx context.Context, doc knowledge.Document) (int64, error)
	DocumentsWithoutChunks(ctx context.Context) ([]knowledge.Document, error)
	InsertChunk(ctx context.Context, chunk knowledge.Chunk) (int64, error)
}

// Ingestor adds files to the knowledge base and embeds pending documents.
type Ingestor struct {
	store    DocumentStore
	embedder ai.Embedder
	logger   *slog.Logger

	chunkSize    int
	chunkOverlap int
}

// Config carries the Ingestor's dependencies and chunking parameters.
type Config struct {
	Store        DocumentStore
	Embedder     ai.Embedder
	ChunkSize    int
	ChunkOverlap int
	Logger       *slog.Logger
}

// New creates an Ingestor.
func New(cfg Config) (*Ingestor, error) {
	if cfg.Store == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:        cfg.Store,
		embedder:     cfg.Embedder,
		logger:       logger,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
	}, nil
}

// AddFile reads a file from disk and stores it as a document. The content
// is stored verbatim; embedding happens in a later EmbedPending pass.
func (in *Ingestor) AddFile(ctx context.Context, path string) (int64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return 0, fmt.Errorf("%s is empty", path)
	}

	doc := knowledge.Document{
		Filename: filepath.Base(path),
		Content:  string(content),
		Size:     int64(len(content)),
		FileType: fileType(path),
	}

	id, err := in.store.InsertDocument(ctx, doc)
	if err != nil {
		return 0, err
	}

	in.logger.Info("ingested file", "id", id, "filename", doc.Filename, "bytes", doc.Size)
	return id, nil
}

// EmbedPending chunks and embeds every document that has no chunks yet.
// A document that fails is logged and skipped so one bad file does not block
// the rest; the returned count covers documents fully embedded in this run.
func (in *Ingestor) EmbedPending(ctx context.Context) (int, error) {
	docs, err := in.store.DocumentsWithoutChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending documents: %w", err)
	}
	if len(docs) == 0 {
		in.logger.Info("no pending documents")
		return 0, nil
	}

	var embedded int
	for _, doc := range docs {
		if err := in.embedDocument(ctx, doc); err != nil {
			in.logger.Warn("skipping document", "id", doc.ID, "filename", doc.Filename, "error", err)
			continue
		}
		embedded++
	}

	in.logger.Info("embedding pass finished", "embedded", embedded, "pending", len(docs))
	return embedded, nil
}

func (in *Ingestor) embedDocument(ctx context.Context, doc knowledge.Document) error {
	chunks := SplitText(doc.Content, in.chunkSize, in.chunkOverlap)
	if len(chunks) == 0 {
		return errors.New("document produced no chunks")
	}

	for i, text := range chunks {
		vec, err := in.embedText(ctx, text)
		if err != nil {
			return fmt.Errorf("embedding chunk %d: %w", i, err)
		}

		_, err = in.store.InsertChunk(ctx, knowledge.Chunk{
			DocumentID: doc.ID,
			Content:    text,
			Embedding:  pgvector.NewVector(vec),
			ChunkIndex: int32(i),
			Metadata: knowledge.Metadata{
				Filename:   doc.Filename,
				ChunkLabel: fmt.Sprintf("chunk %d/%d", i+1, len(chunks)),
			},
		})
		if err != nil {
			return fmt.Errorf("storing chunk %d: %w", i, err)
		}
	}

	in.logger.Debug("embedded document", "id", doc.ID, "filename", doc.Filename, "chunks", len(chunks))
	return nil
}

func (in *Ingestor) embedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := in.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("embedder returned no embedding")
	}
	return resp.Embeddings[0].Embedding, nil
}

// fileType classifies a file by extension, mirroring how the store labels
// documents for display.
func fileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return "image"
	case ".md", ".markdown":
		return "markdown"
	default:
		return "text"
	}
}
