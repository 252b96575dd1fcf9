// Package provision makes sure the store file exists locally, fetching it
// from a remote location when it does not.
package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/helixml/passage/domain/passage"
)

// DefaultTimeout bounds a whole download.
const DefaultTimeout = 180 * time.Second

// Source says where a ready store file came from.
type Source string

// Sources.
const (
	SourceLocal      Source = "local"
	SourceDownloaded Source = "downloaded"
)

// Request describes the store file to provision.
type Request struct {
	LocalPath      string
	RemoteURL      string
	BearerToken    string
	ExpectedSHA256 string
}

// Result reports the outcome of Ensure.
type Result struct {
	ready  bool
	source Source
	detail string
}

// Ready reports whether the store file is present at the local path.
func (r Result) Ready() bool { return r.ready }

// Source returns where the file came from. Empty when not ready.
func (r Result) Source() Source { return r.source }

// Detail returns a human readable description of the outcome.
func (r Result) Detail() string { return r.detail }

// Provisioner downloads store files.
type Provisioner struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provisioner) { p.client = c }
}

// WithTimeout bounds each download.
func WithTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.logger = l }
}

// New creates a Provisioner.
func New(opts ...Option) *Provisioner {
	p := &Provisioner{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ensure returns immediately when the local file exists. Otherwise it
// downloads RemoteURL into a temporary file beside LocalPath, verifies the
// SHA-256 digest when one is expected and renames the file into place.
// On failure nothing is left at LocalPath and the temporary file is removed.
func (p *Provisioner) Ensure(ctx context.Context, req Request) (Result, error) {
	if req.LocalPath == "" {
		return fail("no local store path configured", errors.New("empty local path"))
	}

	info, err := os.Stat(req.LocalPath)
	if err == nil {
		if info.IsDir() {
			return fail(req.LocalPath+" is a directory", passage.ErrStorageUnavailable)
		}
		return Result{ready: true, source: SourceLocal, detail: "using local store " + req.LocalPath}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fail("cannot stat "+req.LocalPath, fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err))
	}

	if strings.TrimSpace(req.RemoteURL) == "" {
		return fail(
			fmt.Sprintf("store %s not found and no remote URL configured; run ingest or set STORE_REMOTE_URL", req.LocalPath),
			passage.ErrStoreMissing,
		)
	}

	dir := filepath.Dir(req.LocalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail("cannot create "+dir, fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err))
	}

	start := time.Now()
	digest, size, tmp, err := p.download(ctx, req.RemoteURL, req.BearerToken, dir)
	if err != nil {
		return fail("download from "+redact(req.RemoteURL)+" failed", err)
	}

	expected := strings.TrimSpace(req.ExpectedSHA256)
	if expected != "" && !strings.EqualFold(digest, expected) {
		_ = os.Remove(tmp)
		return fail(
			fmt.Sprintf("checksum mismatch: expected %s, got %s", strings.ToLower(expected), digest),
			passage.ErrIntegrityCheckFailed,
		)
	}

	if err := os.Rename(tmp, req.LocalPath); err != nil {
		_ = os.Remove(tmp)
		return fail("cannot move download into place", fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err))
	}

	p.logger.Info("store downloaded",
		slog.String("path", req.LocalPath),
		slog.Int64("bytes", size),
		slog.String("sha256", digest),
		slog.Duration("duration", time.Since(start)),
	)
	return Result{
		ready:  true,
		source: SourceDownloaded,
		detail: fmt.Sprintf("downloaded %d bytes to %s", size, req.LocalPath),
	}, nil
}

// download streams the body to a temp file in dir, hashing as it writes.
// The temp file is removed on any error.
func (p *Provisioner) download(ctx context.Context, url, token, dir string) (digest string, size int64, path string, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %w", passage.ErrDownloadFailed, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %w", passage.ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", 0, "", fmt.Errorf("%w: HTTP %d", passage.ErrDownloadFailed, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, ".store-download-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	hasher := sha256.New()
	size, err = io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %w", passage.ErrDownloadFailed, err)
	}
	if err = tmp.Sync(); err != nil {
		return "", 0, "", fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err)
	}
	if err = tmp.Close(); err != nil {
		return "", 0, "", fmt.Errorf("%w: %w", passage.ErrStorageUnavailable, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, tmp.Name(), nil
}

func fail(detail string, err error) (Result, error) {
	return Result{detail: detail}, fmt.Errorf("%s: %w", detail, err)
}

// redact drops any query string, which may carry credentials.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
