// Package passage provides the passage domain types: chunks produced during
// ingestion, the rows persisted for them, and the results returned by retrieval.
package passage

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Metadata is the opaque key/value mapping carried from the source page.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// Page returns the page number recorded under the "page" key.
func (m Metadata) Page() (int, bool) {
	switch v := m["page"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// MarshalMetadata serializes metadata to its stored JSON form.
func MarshalMetadata(m Metadata) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

// UnmarshalMetadata parses the stored JSON form of metadata.
func UnmarshalMetadata(s string) (Metadata, error) {
	if s == "" {
		return Metadata{}, nil
	}
	var m Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if m == nil {
		m = Metadata{}
	}
	return m, nil
}

// Chunk is a contiguous span of normalized text extracted from the source
// document. Immutable value object.
type Chunk struct {
	text     string
	metadata Metadata
}

// New creates a Chunk.
func New(text string, metadata Metadata) Chunk {
	return Chunk{
		text:     text,
		metadata: metadata.Clone(),
	}
}

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Metadata returns a copy of the chunk metadata.
func (c Chunk) Metadata() Metadata { return c.metadata.Clone() }

// WithText returns a copy of the chunk with its text replaced.
func (c Chunk) WithText(text string) Chunk {
	return New(text, c.metadata)
}

// Stored is the persisted unit: a chunk with its id, embedding and creation time.
type Stored struct {
	id        int64
	text      string
	embedding []float64
	metadata  Metadata
	createdAt time.Time
}

// ReconstructStored recreates a Stored chunk from persistence.
func ReconstructStored(id int64, text string, embedding []float64, metadata Metadata, createdAt time.Time) Stored {
	vec := make([]float64, len(embedding))
	copy(vec, embedding)
	return Stored{
		id:        id,
		text:      text,
		embedding: vec,
		metadata:  metadata.Clone(),
		createdAt: createdAt,
	}
}

// ID returns the sequence id.
func (s Stored) ID() int64 { return s.id }

// Text returns the chunk text.
func (s Stored) Text() string { return s.text }

// Embedding returns the embedding vector. The slice is shared; callers must not modify it.
func (s Stored) Embedding() []float64 { return s.embedding }

// Metadata returns a copy of the chunk metadata.
func (s Stored) Metadata() Metadata { return s.metadata.Clone() }

// CreatedAt returns the insertion timestamp.
func (s Stored) CreatedAt() time.Time { return s.createdAt }

// Result is a stored chunk projected with its query similarity. Never persisted.
type Result struct {
	id         int64
	text       string
	metadata   Metadata
	similarity float64
}

// NewResult creates a Result.
func NewResult(id int64, text string, metadata Metadata, similarity float64) Result {
	return Result{
		id:         id,
		text:       text,
		metadata:   metadata.Clone(),
		similarity: similarity,
	}
}

// ID returns the stored chunk id.
func (r Result) ID() int64 { return r.id }

// Text returns the chunk text.
func (r Result) Text() string { return r.text }

// Metadata returns a copy of the chunk metadata.
func (r Result) Metadata() Metadata { return r.metadata.Clone() }

// Similarity returns the cosine similarity to the query, in [-1, 1].
func (r Result) Similarity() float64 { return r.similarity }
