package provider

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, status int, counter *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"echo":` + string(body) + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, rt http.RoundTripper, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestCachingTransport_HitAfterMiss(t *testing.T) {
	var count atomic.Int32
	srv := countingServer(t, http.StatusOK, &count)

	transport, err := NewCachingTransport(t.TempDir(), srv.Client().Transport, nil)
	require.NoError(t, err)

	for range 3 {
		status, body := post(t, transport, srv.URL+"/v1/embeddings", `"hello"`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, `{"echo":"hello"}`, body)
	}
	assert.Equal(t, int32(1), count.Load())
}

func TestCachingTransport_KeyIncludesBody(t *testing.T) {
	var count atomic.Int32
	srv := countingServer(t, http.StatusOK, &count)

	transport, err := NewCachingTransport(t.TempDir(), srv.Client().Transport, nil)
	require.NoError(t, err)

	post(t, transport, srv.URL+"/v1/embeddings", `"a"`)
	_, body := post(t, transport, srv.URL+"/v1/embeddings", `"b"`)

	assert.Equal(t, `{"echo":"b"}`, body)
	assert.Equal(t, int32(2), count.Load())
}

func TestCachingTransport_ErrorsNotCached(t *testing.T) {
	var count atomic.Int32
	srv := countingServer(t, http.StatusTooManyRequests, &count)

	dir := t.TempDir()
	transport, err := NewCachingTransport(dir, srv.Client().Transport, nil)
	require.NoError(t, err)

	for range 2 {
		status, _ := post(t, transport, srv.URL+"/v1/embeddings", `"x"`)
		assert.Equal(t, http.StatusTooManyRequests, status)
	}
	assert.Equal(t, int32(2), count.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCachingTransport_GetPassesThrough(t *testing.T) {
	var count atomic.Int32
	srv := countingServer(t, http.StatusOK, &count)

	transport, err := NewCachingTransport(t.TempDir(), srv.Client().Transport, nil)
	require.NoError(t, err)

	for range 2 {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/models", nil)
		require.NoError(t, err)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	assert.Equal(t, int32(2), count.Load())
}
