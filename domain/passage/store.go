package passage

import (
	"context"
	"iter"
)

// Store persists chunks with their embeddings and supports full scans.
// A Store handle has at most one writer; concurrent readers are safe once
// the corpus is published.
type Store interface {
	// Insert assigns the next sequence id to the chunk and persists it atomically.
	Insert(ctx context.Context, c Chunk, embedding []float64) (int64, error)

	// InsertAll persists a batch in a single transaction and returns the assigned ids.
	InsertAll(ctx context.Context, chunks []Chunk, embeddings [][]float64) ([]int64, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)

	// Dimension returns the embedding length recorded at the first insert.
	// ok is false when the store is still empty.
	Dimension(ctx context.Context) (dim int, ok bool, err error)

	// Scan lazily yields every stored chunk in ascending id order.
	Scan(ctx context.Context) iter.Seq2[Stored, error]

	// Replace drops the stored corpus and inserts the batch atomically. On
	// failure the previous corpus is unchanged.
	Replace(ctx context.Context, chunks []Chunk, embeddings [][]float64) ([]int64, error)

	// Close releases the handle. Safe to call more than once.
	Close() error
}
