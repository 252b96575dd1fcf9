package service

import (
	"context"
	"errors"
	"strings"

	"github.com/helixml/passage/infrastructure/provider"
)

var topics = [][]string{
	{"report", "writing", "clarity", "structure"},
	{"weather", "sunny", "picnic"},
}

// keywordEmbedder maps text onto topic keyword counts.
type keywordEmbedder struct {
	batches int
	err     error
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	return keywordVector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	e.batches++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

// truncatingEmbedder drops all but the first component of the last vector
// in each batch.
type truncatingEmbedder struct {
	keywordEmbedder
}

func (e *truncatingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out, err := e.keywordEmbedder.EmbedBatch(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}
	last := len(out) - 1
	out[last] = out[last][:1]
	return out, nil
}

func keywordVector(text string) []float64 {
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

// recordingGenerator captures the last request and replies with a fixed text.
type recordingGenerator struct {
	last  provider.ChatCompletionRequest
	reply string
	err   error
}

func (g *recordingGenerator) ChatCompletion(_ context.Context, req provider.ChatCompletionRequest) (provider.ChatCompletionResponse, error) {
	g.last = req
	if g.err != nil {
		return provider.ChatCompletionResponse{}, g.err
	}
	return provider.NewChatCompletionResponse(g.reply, "stop", provider.NewUsage(20, 5, 25)), nil
}

var errOffline = errors.New("connection refused")
