package knowledge

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// VectorDimension is the embedding width of the chunks table.
// gemini-embedding supports truncation to 768 dimensions, which matches the
// vector(768) column in db/migrations.
const VectorDimension = 768

// Document is a named unit of ingested content. Rows are written once by the
// ingestion tooling and never mutated afterwards; the retrieval path treats
// them as read-only.
type Document struct {
	ID       int64
	Filename string
	Content  string
	Size     int64     // raw content size in bytes
	FileType string    // "pdf", "image", "text", ...
	CreateAt time.Time // ingestion timestamp
}

// Chunk is a slice of a document's text paired with its embedding vector.
// (DocumentID, ChunkIndex) pairs are unique, enforced by the schema.
type Chunk struct {
	ID         int64
	DocumentID int64
	Content    string
	Embedding  pgvector.Vector
	ChunkIndex int32
	Metadata   Metadata
	CreateAt   time.Time
}

// Metadata carries chunk provenance. Known fields are typed; anything else
// the store holds lands in Extra so no key is silently dropped.
type Metadata struct {
	Filename   string
	ChunkLabel string
	Extra      map[string]string
}

// metadata keys with dedicated struct fields.
const (
	metaKeyFilename   = "filename"
	metaKeyChunkLabel = "chunk_label"
)

// MarshalJSON flattens Metadata into the single JSON object stored in the
// metadata JSONB column.
func (m Metadata) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(m.Extra)+2)
	for k, v := range m.Extra {
		flat[k] = v
	}
	if m.Filename != "" {
		flat[metaKeyFilename] = m.Filename
	}
	if m.ChunkLabel != "" {
		flat[metaKeyChunkLabel] = m.ChunkLabel
	}
	return json.Marshal(flat)
}

// UnmarshalJSON lifts the known keys into typed fields and keeps the rest
// in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	*m = Metadata{}
	for k, v := range flat {
		switch k {
		case metaKeyFilename:
			m.Filename = v
		case metaKeyChunkLabel:
			m.ChunkLabel = v
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// Result is a single similarity-search hit. Results are transient: produced
// per query, ordered by descending similarity, never persisted.
type Result struct {
	ChunkID    int64
	DocumentID int64
	Content    string
	ChunkIndex int32
	Metadata   Metadata
	Similarity float64
}
