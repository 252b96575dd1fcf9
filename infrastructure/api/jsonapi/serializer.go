package jsonapi

import (
	"strconv"

	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/infrastructure/provider"
)

// Resource types.
const (
	TypePassage = "passage"
	TypeAnswer  = "answer"
	TypeStats   = "stats"
)

// PassageAttributes represents a retrieved passage in JSON:API format.
type PassageAttributes struct {
	Text       string           `json:"text"`
	Page       *int             `json:"page,omitempty"`
	Source     *string          `json:"source,omitempty"`
	Metadata   passage.Metadata `json:"metadata"`
	Similarity float64          `json:"similarity"`
}

// UsageAttributes reports token usage of a generation.
type UsageAttributes struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AnswerAttributes represents a generated answer in JSON:API format.
type AnswerAttributes struct {
	Query  string          `json:"query"`
	Answer string          `json:"answer"`
	Model  string          `json:"model,omitempty"`
	Usage  UsageAttributes `json:"usage"`
}

// StatsAttributes describes the stored corpus.
type StatsAttributes struct {
	Chunks    int64 `json:"chunks"`
	Dimension int   `json:"dimension"`
}

// Serializer converts domain objects to JSON:API resources.
type Serializer struct{}

// NewSerializer creates a new Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// PassageResource converts a retrieval result to a resource.
func (s *Serializer) PassageResource(r passage.Result) *Resource {
	md := r.Metadata()
	if md == nil {
		md = passage.Metadata{}
	}
	attrs := PassageAttributes{
		Text:       r.Text(),
		Metadata:   md,
		Similarity: r.Similarity(),
	}
	if page, ok := md.Page(); ok {
		attrs.Page = &page
	}
	if source, ok := md["source"].(string); ok {
		attrs.Source = &source
	}
	return NewResource(TypePassage, strconv.FormatInt(r.ID(), 10), attrs)
}

// PassageResources converts results in rank order.
func (s *Serializer) PassageResources(results []passage.Result) []*Resource {
	out := make([]*Resource, len(results))
	for i, r := range results {
		out[i] = s.PassageResource(r)
	}
	return out
}

// AnswerDocument builds a document whose primary data is the answer and
// whose included resources are the passages it was grounded on.
func (s *Serializer) AnswerDocument(id, query, text, model string, usage provider.Usage, passages []passage.Result) *Document {
	included := s.PassageResources(passages)
	identifiers := make([]ResourceIdentifier, len(included))
	for i, r := range included {
		identifiers[i] = r.Identifier()
	}

	answer := NewResource(TypeAnswer, id, AnswerAttributes{
		Query:  query,
		Answer: text,
		Model:  model,
		Usage: UsageAttributes{
			PromptTokens:     usage.PromptTokens(),
			CompletionTokens: usage.CompletionTokens(),
			TotalTokens:      usage.TotalTokens(),
		},
	})
	answer.Relationships = Relationships{
		"passages": {Data: identifiers},
	}

	doc := NewSingleResponse(answer)
	doc.Included = included
	return doc
}

// StatsResource describes the store.
func (s *Serializer) StatsResource(chunks int64, dimension int) *Resource {
	return NewResource(TypeStats, "store", StatsAttributes{Chunks: chunks, Dimension: dimension})
}
