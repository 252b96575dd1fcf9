// Package service provides application layer services that orchestrate the
// passage pipeline: ingestion, search, answering and store provisioning.
package service

import "errors"

var (
	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("passage: client is closed")

	// ErrNoTextProvider indicates answers were requested without a chat provider.
	ErrNoTextProvider = errors.New("passage: no text provider configured")
)
