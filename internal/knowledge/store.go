// Package knowledge persists documents and their embedded chunks in
// PostgreSQL with the pgvector extension, and answers similarity lookups
// over the stored vectors.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Querier is the subset of pgx operations the store needs. *pgxpool.Pool
// satisfies it; tests substitute a stub. Defined by the consumer, like
// io.Reader.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and writes the documents and embeddings tables.
//
// The similarity ordering and threshold filtering happen in SQL; callers get
// rows already ranked by descending cosine similarity.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default().
func NewStore(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

const similaritySearchSQL = `
SELECT e.id, e.document_id, e.content_chunk, e.chunk_index, e.metadata,
       1 - (e.embedding <=> $1) AS similarity
FROM embeddings e
WHERE 1 - (e.embedding <=> $1) >= $2
ORDER BY e.embedding <=> $1
LIMIT $3`

// SimilaritySearch returns the chunks most similar to the given query
// embedding, filtered by threshold and capped at limit. Ordering is
// descending by similarity, guaranteed by the <=> index scan.
func (s *Store) SimilaritySearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Result, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(embedding), VectorDimension)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx, similaritySearchSQL, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r        Result
			metaJSON []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.ChunkIndex, &metaJSON, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
				s.logger.Warn("unparseable chunk metadata", "chunk_id", r.ChunkID, "error", err)
				r.Metadata = Metadata{}
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}

	s.logger.Debug("similarity search", "hits", len(results), "threshold", threshold, "limit", limit)
	return results, nil
}

// InsertDocument stores an ingested document and returns its ID.
func (s *Store) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	const sql = `
INSERT INTO documents (filename, content, file_size, file_type)
VALUES ($1, $2, $3, $4)
RETURNING id`

	var id int64
	err := s.db.QueryRow(ctx, sql, doc.Filename, doc.Content, doc.Size, doc.FileType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting document %q: %w", doc.Filename, err)
	}

	s.logger.Debug("inserted document", "id", id, "filename", doc.Filename, "size", doc.Size)
	return id, nil
}

// Document looks up a single document by ID.
func (s *Store) Document(ctx context.Context, id int64) (Document, error) {
	const sql = `
SELECT id, filename, content, file_size, file_type, upload_date
FROM documents
WHERE id = $1`

	var doc Document
	err := s.db.QueryRow(ctx, sql, id).Scan(
		&doc.ID, &doc.Filename, &doc.Content, &doc.Size, &doc.FileType, &doc.CreateAt)
	if err != nil {
		return Document{}, fmt.Errorf("looking up document %d: %w", id, err)
	}
	return doc, nil
}

// DocumentsWithoutChunks lists documents that have no embedded chunks yet.
// The embed pass uses this to pick up pending work and skip documents that
// were already processed.
func (s *Store) DocumentsWithoutChunks(ctx context.Context) ([]Document, error) {
	const sql = `
SELECT d.id, d.filename, d.content, d.file_size, d.file_type, d.upload_date
FROM documents d
WHERE NOT EXISTS (SELECT 1 FROM embeddings e WHERE e.document_id = d.id)
ORDER BY d.id`

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing pending documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.Size, &doc.FileType, &doc.CreateAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading document rows: %w", err)
	}
	return docs, nil
}

// InsertChunk stores one embedded chunk and returns its ID.
func (s *Store) InsertChunk(ctx context.Context, chunk Chunk) (int64, error) {
	if len(chunk.Embedding.Slice()) != VectorDimension {
		return 0, fmt.Errorf("chunk embedding has %d dimensions, want %d",
			len(chunk.Embedding.Slice()), VectorDimension)
	}

	metaJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshaling chunk metadata: %w", err)
	}

	const sql = `
INSERT INTO embeddings (document_id, content_chunk, embedding, chunk_index, metadata)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

	var id int64
	err = s.db.QueryRow(ctx, sql, chunk.DocumentID, chunk.Content, chunk.Embedding, chunk.ChunkIndex, metaJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting chunk %d of document %d: %w", chunk.ChunkIndex, chunk.DocumentID, err)
	}
	return id, nil
}

// ChunksByDocument returns all chunks of a document in ordinal order.
func (s *Store) ChunksByDocument(ctx context.Context, documentID int64) ([]Chunk, error) {
	const sql = `
SELECT id, document_id, content_chunk, embedding, chunk_index, metadata, created_at
FROM embeddings
WHERE document_id = $1
ORDER BY chunk_index`

	rows, err := s.db.Query(ctx, sql, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks of document %d: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var (
			c        Chunk
			metaJSON []byte
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Embedding, &c.ChunkIndex, &metaJSON, &c.CreateAt); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
				s.logger.Warn("unparseable chunk metadata", "chunk_id", c.ID, "error", err)
				c.Metadata = Metadata{}
			}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return chunks, nil
}

// CountChunks returns the total number of embedded chunks. The chat command
// reports this at startup so an empty knowledge base is visible immediately.
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}
