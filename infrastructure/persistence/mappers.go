package persistence

import (
	"fmt"
	"time"

	"github.com/helixml/passage/domain/passage"
)

type chunkMapper struct{}

func (chunkMapper) ToDomain(m ChunkModel) (passage.Stored, error) {
	md, err := passage.UnmarshalMetadata(m.Metadata)
	if err != nil {
		return passage.Stored{}, fmt.Errorf("chunk %d: %w", m.ID, err)
	}
	return passage.ReconstructStored(m.ID, m.Text, m.Embedding, md, m.CreatedAt), nil
}

func (chunkMapper) ToModel(id int64, c passage.Chunk, embedding []float64, createdAt time.Time) (ChunkModel, error) {
	md, err := passage.MarshalMetadata(c.Metadata())
	if err != nil {
		return ChunkModel{}, err
	}
	vec := make(Float64Slice, len(embedding))
	copy(vec, embedding)
	return ChunkModel{
		ID:        id,
		Text:      c.Text(),
		Embedding: vec,
		Metadata:  md,
		CreatedAt: createdAt,
	}, nil
}
