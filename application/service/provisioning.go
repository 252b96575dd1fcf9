package service

import (
	"context"
	"log/slog"

	"github.com/helixml/passage/infrastructure/provision"
)

// Provisioning makes the configured store file available locally.
type Provisioning struct {
	provisioner *provision.Provisioner
	request     provision.Request
	logger      *slog.Logger
}

// NewProvisioning creates a Provisioning service for one store file.
func NewProvisioning(provisioner *provision.Provisioner, request provision.Request, logger *slog.Logger) *Provisioning {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioning{provisioner: provisioner, request: request, logger: logger}
}

// Path returns the local store path.
func (s *Provisioning) Path() string { return s.request.LocalPath }

// Ensure fetches the store if it is missing.
func (s *Provisioning) Ensure(ctx context.Context) (provision.Result, error) {
	result, err := s.provisioner.Ensure(ctx, s.request)
	if err != nil {
		s.logger.Error("store not available", slog.String("detail", result.Detail()), slog.Any("error", err))
		return result, err
	}
	s.logger.Info("store ready", slog.String("source", string(result.Source())), slog.String("path", s.request.LocalPath))
	return result, nil
}
