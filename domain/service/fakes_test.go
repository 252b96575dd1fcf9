package service

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/helixml/passage/domain/passage"
)

// --- fakes ---

// topicEmbedder counts topic keywords, giving report and weather text
// orthogonal directions.
type topicEmbedder struct {
	calls int
	err   error
}

var topics = [][]string{
	{"report", "writing", "clarity", "structure"},
	{"weather", "sunny", "picnic"},
}

func (e *topicEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return topicVector(text), nil
}

func (e *topicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = topicVector(t)
	}
	return out, nil
}

func topicVector(text string) []float64 {
	lower := strings.ToLower(text)
	vec := make([]float64, len(topics))
	for i, words := range topics {
		for _, w := range words {
			if strings.Contains(lower, w) {
				vec[i]++
			}
		}
	}
	return vec
}

// fixedEmbedder returns a constant query vector.
type fixedEmbedder struct {
	vector []float64
}

func (e fixedEmbedder) Embed(context.Context, string) ([]float64, error) {
	return e.vector, nil
}

func (e fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

type memStore struct {
	rows    []passage.Stored
	scanErr error
}

func (s *memStore) Insert(_ context.Context, c passage.Chunk, embedding []float64) (int64, error) {
	id := int64(len(s.rows))
	s.rows = append(s.rows, passage.ReconstructStored(id, c.Text(), embedding, c.Metadata(), time.Now()))
	return id, nil
}

func (s *memStore) InsertAll(ctx context.Context, chunks []passage.Chunk, embeddings [][]float64) ([]int64, error) {
	if len(chunks) != len(embeddings) {
		return nil, passage.ErrLengthMismatch
	}
	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		id, err := s.Insert(ctx, c, embeddings[i])
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (s *memStore) Count(context.Context) (int64, error) { return int64(len(s.rows)), nil }

func (s *memStore) Dimension(context.Context) (int, bool, error) {
	if len(s.rows) == 0 {
		return 0, false, nil
	}
	return len(s.rows[0].Embedding()), true, nil
}

func (s *memStore) Scan(context.Context) iter.Seq2[passage.Stored, error] {
	return func(yield func(passage.Stored, error) bool) {
		if s.scanErr != nil {
			yield(passage.Stored{}, s.scanErr)
			return
		}
		for _, r := range s.rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (s *memStore) Replace(ctx context.Context, chunks []passage.Chunk, embeddings [][]float64) ([]int64, error) {
	if len(chunks) != len(embeddings) {
		return nil, passage.ErrLengthMismatch
	}
	s.rows = nil
	return s.InsertAll(ctx, chunks, embeddings)
}

func (s *memStore) Close() error { return nil }

var errEmbedder = errors.New("connection refused")
