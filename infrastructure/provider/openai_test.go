package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer mimics the OpenAI embeddings endpoint. Each text gets
// the vector [len(text), index, 1]; data is returned in reverse order to
// exercise index handling.
func fakeEmbeddingServer(t *testing.T, counter *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		data := make([]map[string]any, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(body.Input[i])), float64(i), 1},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage": map[string]int{
				"prompt_tokens": len(body.Input) * 4,
				"total_tokens":  len(body.Input) * 4,
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(url string) *OpenAIProvider {
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:         "test-key",
		BaseURL:        url,
		EmbeddingModel: "test-model",
		MaxRetries:     2,
		InitialDelay:   time.Millisecond,
	})
}

func TestOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k"})
	assert.Equal(t, DefaultEmbeddingModel, p.EmbeddingModel())
	assert.Equal(t, DefaultChatModel, p.ChatModel())
}

func TestOpenAIProvider_EmbedEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)

	resp, err := testProvider(srv.URL).Embed(context.Background(), NewEmbeddingRequest(nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Embeddings())
	assert.Zero(t, counter.Load(), "no HTTP request for empty input")
}

func TestOpenAIProvider_EmbedOrdersByIndex(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)

	resp, err := testProvider(srv.URL).Embed(context.Background(), NewEmbeddingRequest([]string{"a", "bbb", "cc"}))
	require.NoError(t, err)

	vectors := resp.Embeddings()
	require.Len(t, vectors, 3)
	assert.Equal(t, []float64{1, 0, 1}, vectors[0])
	assert.Equal(t, []float64{3, 1, 1}, vectors[1])
	assert.Equal(t, []float64{2, 2, 1}, vectors[2])
	assert.Equal(t, 12, resp.Usage().TotalTokens())
	assert.Equal(t, int64(1), counter.Load())
}

func TestOpenAIProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	var counter atomic.Int64
	inner := fakeEmbeddingServer(t, &counter)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		inner.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	resp, err := testProvider(srv.URL).Embed(context.Background(), NewEmbeddingRequest([]string{"x"}))
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings(), 1)
	assert.Equal(t, int64(2), calls.Load())
}

func TestOpenAIProvider_Unauthorized(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Embed(context.Background(), NewEmbeddingRequest([]string{"x"}))
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "embedding", perr.Operation())
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode())
	assert.True(t, perr.IsUnauthorized())
	assert.Equal(t, int64(1), calls.Load(), "auth failures are not retried")
}

func TestOpenAIProvider_UpstreamFailureNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"","usage":{"prompt_tokens":0,"total_tokens":0}}`))
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Embed(context.Background(), NewEmbeddingRequest([]string{"x"}))
	require.ErrorIs(t, err, errUpstreamProviderFailure)
	assert.Equal(t, int64(1), calls.Load())
}

func TestOpenAIProvider_ChatCompletion(t *testing.T) {
	var got struct {
		Model       string   `json:"model"`
		Temperature *float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Be clear."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	p := testProvider(srv.URL)
	req := NewChatCompletionRequest([]Message{UserMessage("How should reports be structured?")}).WithModel("gpt-4o")

	resp, err := p.ChatCompletion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Be clear.", resp.Content())
	assert.Equal(t, "stop", resp.FinishReason())
	assert.Equal(t, 13, resp.Usage().TotalTokens())

	assert.Equal(t, "gpt-4o", got.Model)
	require.NotNil(t, got.Temperature, "zero temperature must still be sent")
	assert.InDelta(t, 0, *got.Temperature, 1e-6)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestOpenAIProvider_ThroughBatchAndCache(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)

	transport, err := NewCachingTransport(t.TempDir(), srv.Client().Transport, nil)
	require.NoError(t, err)
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Transport: transport})
	embedder := NewBatchEmbedder(p, 2, 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	first, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	second, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for i, v := range first {
		assert.Equal(t, float64(len(texts[i])), v[0])
	}
	assert.Equal(t, int64(3), counter.Load())
}
