package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/domain/search"
)

// DefaultBufferSize is the number of neighbouring sentences embedded on each
// side of a sentence when measuring distances.
const DefaultBufferSize = 1

// ChunkerConfig holds the chunk boundary settings.
type ChunkerConfig struct {
	breakpoint BreakpointType
	amount     float64
	bufferSize int
}

// NewChunkerConfig applies options over the defaults: percentile 95, buffer 1.
func NewChunkerConfig(opts ...ChunkerOption) ChunkerConfig {
	cfg := ChunkerConfig{
		breakpoint: BreakpointPercentile,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.amount == 0 {
		cfg.amount = cfg.breakpoint.DefaultAmount()
	}
	return cfg
}

// Breakpoint returns the boundary statistic.
func (c ChunkerConfig) Breakpoint() BreakpointType { return c.breakpoint }

// Amount returns the threshold amount for the statistic.
func (c ChunkerConfig) Amount() float64 { return c.amount }

// BufferSize returns the neighbour buffer.
func (c ChunkerConfig) BufferSize() int { return c.bufferSize }

// ChunkerOption configures a SemanticChunker.
type ChunkerOption func(*ChunkerConfig)

// WithBreakpoint sets the boundary statistic and its amount.
// A zero amount selects the statistic's default.
func WithBreakpoint(kind BreakpointType, amount float64) ChunkerOption {
	return func(c *ChunkerConfig) {
		c.breakpoint = kind
		c.amount = amount
	}
}

// WithBufferSize sets how many neighbouring sentences are embedded with each sentence.
func WithBufferSize(n int) ChunkerOption {
	return func(c *ChunkerConfig) {
		if n >= 0 {
			c.bufferSize = n
		}
	}
}

// SemanticChunker splits page text into passages at points of maximal
// semantic discontinuity between adjacent sentences.
type SemanticChunker struct {
	embedder search.TextEmbedder
	config   ChunkerConfig
}

// NewSemanticChunker creates a new SemanticChunker.
func NewSemanticChunker(embedder search.TextEmbedder, opts ...ChunkerOption) (*SemanticChunker, error) {
	if embedder == nil {
		return nil, errors.New("NewSemanticChunker: nil embedder")
	}
	return &SemanticChunker{
		embedder: embedder,
		config:   NewChunkerConfig(opts...),
	}, nil
}

// Config returns the chunker configuration.
func (c *SemanticChunker) Config() ChunkerConfig { return c.config }

type sentence struct {
	text     string
	metadata passage.Metadata
}

// Chunk segments the pages into sentences, embeds each sentence with its
// neighbours and emits one chunk per run between boundaries. Each chunk
// carries the metadata of the page its first sentence came from.
func (c *SemanticChunker) Chunk(ctx context.Context, pages []passage.Page) ([]passage.Chunk, error) {
	var sentences []sentence
	for _, p := range pages {
		md := p.Metadata()
		for _, s := range SplitSentences(p.Text()) {
			sentences = append(sentences, sentence{text: s, metadata: md})
		}
	}

	switch len(sentences) {
	case 0:
		return []passage.Chunk{}, nil
	case 1:
		return []passage.Chunk{passage.New(sentences[0].text, sentences[0].metadata)}, nil
	}

	groups := combine(sentences, c.config.bufferSize)
	vectors, err := c.embedder.EmbedBatch(ctx, groups)
	if err != nil {
		return nil, fmt.Errorf("embed %d sentence groups: %w: %w", len(groups), passage.ErrEmbedderUnavailable, err)
	}
	if len(vectors) != len(groups) {
		return nil, fmt.Errorf("embed sentence groups: got %d vectors for %d inputs: %w", len(vectors), len(groups), passage.ErrEmbedderUnavailable)
	}

	distances := make([]float64, len(vectors)-1)
	for i := range distances {
		if len(vectors[i]) != len(vectors[i+1]) {
			return nil, fmt.Errorf("sentence group %d: %d vs %d: %w", i, len(vectors[i]), len(vectors[i+1]), passage.ErrDimensionMismatch)
		}
		distances[i] = search.CosineDistance(vectors[i], vectors[i+1])
	}

	var chunks []passage.Chunk
	start := 0
	for _, idx := range breakpoints(distances, c.config.breakpoint, c.config.amount) {
		chunks = append(chunks, join(sentences[start:idx+1]))
		start = idx + 1
	}
	if start < len(sentences) {
		chunks = append(chunks, join(sentences[start:]))
	}
	return chunks, nil
}

func combine(sentences []sentence, buffer int) []string {
	groups := make([]string, len(sentences))
	for i := range sentences {
		lo := max(0, i-buffer)
		hi := min(len(sentences), i+buffer+1)
		parts := make([]string, 0, hi-lo)
		for _, s := range sentences[lo:hi] {
			parts = append(parts, s.text)
		}
		groups[i] = strings.Join(parts, " ")
	}
	return groups
}

func join(run []sentence) passage.Chunk {
	parts := make([]string, len(run))
	for i, s := range run {
		parts[i] = s.text
	}
	return passage.New(strings.Join(parts, " "), run[0].metadata)
}

// SplitSentences splits text after '.', '?' or '!' when followed by
// whitespace. Sentences are trimmed; empty ones are dropped.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '?', '!':
		default:
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = appendSentence(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = appendSentence(out, string(runes[start:]))
	}
	return out
}

func appendSentence(out []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	return append(out, s)
}
