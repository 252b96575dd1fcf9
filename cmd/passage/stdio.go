package main

import (
	"log/slog"

	"github.com/helixml/passage/internal/mcp"
	"github.com/spf13/cobra"
)

func stdioCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants search the stored passages. Logs are written to
stderr so stdout carries only protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, logger, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}

			logger.Info("starting MCP server",
				slog.String("version", version),
				slog.String("data_dir", cfg.DataDir()),
			)

			client, err := newClient(cfg, logger, true)
			if err != nil {
				return err
			}
			defer closeClient(client, logger)

			var answerer mcp.Answerer
			if client.Answers != nil {
				answerer = client.Answers
			}
			return mcp.NewServer(client.Search, answerer, version, logger).ServeStdio()
		},
	}
}
