package passage

import "errors"

// Pipeline errors. Callers wrap these with a human readable detail.
var (
	// ErrEmbedderUnavailable indicates the embedding service could not produce vectors during ingestion.
	ErrEmbedderUnavailable = errors.New("embedder unavailable")

	// ErrQueryEmbeddingFailed indicates the query could not be embedded at retrieval time.
	ErrQueryEmbeddingFailed = errors.New("query embedding failed")

	// ErrStorageUnavailable indicates the backing store could not be opened, read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDimensionMismatch indicates two embeddings that must agree in length do not.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreNotEmpty indicates an ingestion into a store that already holds a corpus.
	ErrStoreNotEmpty = errors.New("store already contains chunks")

	// ErrLengthMismatch indicates a batch whose chunk and embedding counts differ.
	ErrLengthMismatch = errors.New("chunk and embedding counts differ")

	// ErrEmptyQuery indicates a blank retrieval query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrIntegrityCheckFailed indicates a downloaded store whose checksum does not match.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")

	// ErrDownloadFailed indicates the remote store could not be fetched.
	ErrDownloadFailed = errors.New("download failed")

	// ErrStoreMissing indicates no local store and no remote location to fetch it from.
	ErrStoreMissing = errors.New("store file missing")
)
