package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixml/passage/infrastructure/api"
	"github.com/helixml/passage/internal/config"
	"github.com/spf13/cobra"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		host    string
		port    int
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. YAML settings file (--config)
  3. .env file (if --env-file specified or .env exists in current directory)
  4. Environment variables
  5. Command line flags

Routes:
  GET  /health          Liveness and store check
  POST /api/v1/search   Retrieve passages
  POST /api/v1/ask      Answer from passages (X-API-KEY when API_KEYS is set)
  GET  /api/v1/stats    Stored chunk count and dimension
  /mcp                  MCP over streamable HTTP

Environment variables:
  HOST, PORT                   Bind address (default: 0.0.0.0:8080)
  DATA_DIR                     Data directory (default: ~/.passage)
  DB_URL                       Store URL (default: sqlite:///{data_dir}/passage.db)
  LOG_LEVEL, LOG_FORMAT        Logging (default: INFO, pretty)
  API_KEYS                     Comma-separated keys protecting /api/v1/ask
  EMBEDDING_ENDPOINT_*         Embedding service (BASE_URL, MODEL, API_KEY, ...)
  ANSWER_ENDPOINT_*            Answer service (same fields)
  STORE_REMOTE_URL             Download the store from here when missing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides []config.AppConfigOption
			if host != "" {
				overrides = append(overrides, config.WithHost(host))
			}
			if port != 0 {
				overrides = append(overrides, config.WithPort(port))
			}
			return runServe(cmd.Context(), flags, origins, overrides...)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origins (default: all)")

	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, origins []string, overrides ...config.AppConfigOption) error {
	ctx, cfg, logger, err := setup(ctx, flags, overrides...)
	if err != nil {
		return err
	}

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting passage", attrs...)

	client, err := newClient(cfg, logger, true)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	apiServer := api.NewAPIServer(client,
		api.WithVersion(version),
		api.WithAllowedOrigins(origins...),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := apiServer.Run(ctx, cfg.Addr()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
