package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/helixml/passage/domain/passage"
	domainservice "github.com/helixml/passage/domain/service"
	"github.com/helixml/passage/infrastructure/provider"
)

const promptTemplate = `Use the following content to answer the user's query:

Content:
%s

User Query:
%s

Provide a clear and concise answer based on the given content. If the content doesn't contain relevant information, say so.`

// Prompt renders the answer prompt for query over the retrieved passages.
func Prompt(query string, results []passage.Result) string {
	return fmt.Sprintf(promptTemplate, domainservice.Context(results), query)
}

// AnswerOption configures answer generation.
type AnswerOption func(*answerConfig)

type answerConfig struct {
	search      []SearchOption
	model       string
	temperature float64
}

// WithSearch passes options to the retrieval step.
func WithSearch(opts ...SearchOption) AnswerOption {
	return func(c *answerConfig) { c.search = append(c.search, opts...) }
}

// WithModel selects the chat model.
func WithModel(model string) AnswerOption {
	return func(c *answerConfig) { c.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) AnswerOption {
	return func(c *answerConfig) { c.temperature = t }
}

// Answer is a generated answer with the passages it was grounded on.
type Answer struct {
	text     string
	model    string
	passages []passage.Result
	usage    provider.Usage
}

// NewAnswer creates an Answer.
func NewAnswer(text, model string, passages []passage.Result, usage provider.Usage) Answer {
	return Answer{text: text, model: model, passages: passages, usage: usage}
}

// Text returns the answer text.
func (a Answer) Text() string { return a.text }

// Model returns the model that produced the answer, empty for the default.
func (a Answer) Model() string { return a.model }

// Passages returns the retrieved passages in rank order.
func (a Answer) Passages() []passage.Result {
	out := make([]passage.Result, len(a.passages))
	copy(out, a.passages)
	return out
}

// Usage returns token usage reported by the generator.
func (a Answer) Usage() provider.Usage { return a.usage }

// Answering retrieves passages and asks a text generator to answer from them.
type Answering struct {
	search    *Search
	generator provider.TextGenerator
}

// NewAnswering creates a new Answering service.
func NewAnswering(search *Search, generator provider.TextGenerator) (*Answering, error) {
	if search == nil {
		return nil, errors.New("NewAnswering: nil search")
	}
	if generator == nil {
		return nil, ErrNoTextProvider
	}
	return &Answering{search: search, generator: generator}, nil
}

// Ask answers query from the top passages.
func (s *Answering) Ask(ctx context.Context, query string, opts ...AnswerOption) (Answer, error) {
	var cfg answerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	results, err := s.search.Query(ctx, query, cfg.search...)
	if err != nil {
		return Answer{}, err
	}

	req := provider.NewChatCompletionRequest([]provider.Message{
		provider.UserMessage(Prompt(strings.TrimSpace(query), results)),
	}).WithTemperature(cfg.temperature)
	if cfg.model != "" {
		req = req.WithModel(cfg.model)
	}

	resp, err := s.generator.ChatCompletion(ctx, req)
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	return NewAnswer(resp.Content(), cfg.model, results, resp.Usage()), nil
}
