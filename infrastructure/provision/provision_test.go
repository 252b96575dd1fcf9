package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/helixml/passage/domain/passage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = []byte("SQLite format 3\x00 pretend store contents")

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func storeServer(t *testing.T, token string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestEnsure_LocalFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	result, err := New().Ensure(context.Background(), Request{LocalPath: path, RemoteURL: "http://127.0.0.1:1/never"})
	require.NoError(t, err)
	assert.True(t, result.Ready())
	assert.Equal(t, SourceLocal, result.Source())
}

func TestEnsure_NoRemoteURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")

	result, err := New().Ensure(context.Background(), Request{LocalPath: path})
	require.ErrorIs(t, err, passage.ErrStoreMissing)
	assert.False(t, result.Ready())
	assert.Contains(t, result.Detail(), "no remote URL")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsure_DownloadsWithChecksumAndToken(t *testing.T) {
	var hits atomic.Int64
	srv := storeServer(t, "s3cret", &hits)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "chunks.db")

	req := Request{
		LocalPath:      path,
		RemoteURL:      srv.URL + "/chunks.db",
		BearerToken:    "s3cret",
		ExpectedSHA256: strings.ToUpper(digest(payload)),
	}
	result, err := New().Ensure(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Ready())
	assert.Equal(t, SourceDownloaded, result.Source())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, []string{"chunks.db"}, leftovers(t, filepath.Dir(path)))

	again, err := New().Ensure(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, again.Source())
	assert.Equal(t, int64(1), hits.Load())
}

func TestEnsure_ChecksumMismatch(t *testing.T) {
	var hits atomic.Int64
	srv := storeServer(t, "", &hits)
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.db")

	result, err := New().Ensure(context.Background(), Request{
		LocalPath:      path,
		RemoteURL:      srv.URL,
		ExpectedSHA256: digest([]byte("something else")),
	})
	require.ErrorIs(t, err, passage.ErrIntegrityCheckFailed)
	assert.False(t, result.Ready())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, leftovers(t, dir))
}

func TestEnsure_HTTPError(t *testing.T) {
	var hits atomic.Int64
	srv := storeServer(t, "expected-token", &hits)
	dir := t.TempDir()

	result, err := New().Ensure(context.Background(), Request{
		LocalPath: filepath.Join(dir, "chunks.db"),
		RemoteURL: srv.URL,
	})
	require.ErrorIs(t, err, passage.ErrDownloadFailed)
	assert.False(t, result.Ready())
	assert.Empty(t, leftovers(t, dir))
}

func TestEnsure_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload[:4])
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	dir := t.TempDir()
	result, err := New(WithTimeout(50*time.Millisecond)).Ensure(context.Background(), Request{
		LocalPath: filepath.Join(dir, "chunks.db"),
		RemoteURL: srv.URL,
	})
	require.ErrorIs(t, err, passage.ErrDownloadFailed)
	assert.False(t, result.Ready())
	assert.Empty(t, leftovers(t, dir))
}

func TestEnsure_Unreachable(t *testing.T) {
	dir := t.TempDir()
	_, err := New(WithTimeout(time.Second)).Ensure(context.Background(), Request{
		LocalPath: filepath.Join(dir, "chunks.db"),
		RemoteURL: "http://127.0.0.1:1/chunks.db",
	})
	require.ErrorIs(t, err, passage.ErrDownloadFailed)
	assert.Empty(t, leftovers(t, dir))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://host/file.db", redact("https://host/file.db?sig=abc"))
	assert.Equal(t, "https://host/file.db", redact("https://host/file.db"))
}
