package passage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_MetadataIsCopied(t *testing.T) {
	md := Metadata{"page": 1}
	c := New("Example passage about reporting.", md)

	md["page"] = 2
	got := c.Metadata()
	got["page"] = 3

	page, ok := c.Metadata().Page()
	require.True(t, ok)
	assert.Equal(t, 1, page)
}

func TestMetadata_RoundTrip(t *testing.T) {
	encoded, err := MarshalMetadata(Metadata{"page": 1, "source": "report.txt"})
	require.NoError(t, err)

	decoded, err := UnmarshalMetadata(encoded)
	require.NoError(t, err)

	page, ok := decoded.Page()
	require.True(t, ok)
	assert.Equal(t, 1, page)
	assert.Equal(t, "report.txt", decoded["source"])
}

func TestMetadata_Empty(t *testing.T) {
	encoded, err := MarshalMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", encoded)

	decoded, err := UnmarshalMetadata("")
	require.NoError(t, err)
	assert.Empty(t, decoded)

	decoded, err = UnmarshalMetadata("null")
	require.NoError(t, err)
	assert.NotNil(t, decoded)
}

func TestMetadata_Invalid(t *testing.T) {
	_, err := UnmarshalMetadata("{not json")
	require.Error(t, err)
}

func TestMetadata_PageTypes(t *testing.T) {
	tests := []struct {
		name string
		md   Metadata
		want int
		ok   bool
	}{
		{"int", Metadata{"page": 4}, 4, true},
		{"int64", Metadata{"page": int64(5)}, 5, true},
		{"float64", Metadata{"page": float64(6)}, 6, true},
		{"json number", Metadata{"page": json.Number("7")}, 7, true},
		{"missing", Metadata{}, 0, false},
		{"string", Metadata{"page": "8"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.md.Page()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconstructStored_CopiesEmbedding(t *testing.T) {
	vec := []float64{1, 2, 3}
	now := time.Now()
	s := ReconstructStored(7, "text", vec, Metadata{"page": 1}, now)
	vec[0] = 99

	assert.Equal(t, int64(7), s.ID())
	assert.Equal(t, []float64{1, 2, 3}, s.Embedding())
	assert.Equal(t, now, s.CreatedAt())
}

func TestNewNumberedPage(t *testing.T) {
	p := NewNumberedPage(2, "Weather was sunny that day.")
	page, ok := p.Metadata().Page()
	require.True(t, ok)
	assert.Equal(t, 2, page)
	assert.Equal(t, "Weather was sunny that day.", p.Text())

	q := p.WithText("Picnics are fun.")
	assert.Equal(t, "Picnics are fun.", q.Text())
	assert.Equal(t, p.Metadata(), q.Metadata())
}
