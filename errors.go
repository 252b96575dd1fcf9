package passage

import (
	"errors"

	"github.com/helixml/passage/application/service"
)

// Client errors.
var (
	// ErrNoDatabase indicates New was called without a store location.
	ErrNoDatabase = errors.New("passage: no database configured")

	// ErrNoEmbedder indicates neither a remote provider nor a local model is available.
	ErrNoEmbedder = errors.New("passage: no embedding provider configured")

	// ErrNoTextProvider indicates answers were requested without a chat provider.
	ErrNoTextProvider = service.ErrNoTextProvider

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = service.ErrClientClosed
)
