// Package main is the entry point for the passage CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/helixml/passage/internal/config"
	"github.com/helixml/passage/internal/log"
	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile    string
	configFile string
	dataDir    string
	dbURL      string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "passage",
		Short: "Semantic document retrieval",
		Long: `Passage splits documents into semantically coherent chunks, embeds them,
stores them in SQLite or PostgreSQL, and retrieves the passages most similar
to a question. It can answer questions from the retrieved passages and serve
search over HTTP and MCP.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	pf.StringVar(&flags.configFile, "config", "", "Path to YAML settings file")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Data directory (default: ~/.passage)")
	pf.StringVar(&flags.dbURL, "db-url", "", "Store URL: sqlite:///path or postgres://...")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")

	cmd.AddCommand(ingestCmd(flags))
	cmd.AddCommand(queryCmd(flags))
	cmd.AddCommand(askCmd(flags))
	cmd.AddCommand(statsCmd(flags))
	cmd.AddCommand(fetchCmd(flags))
	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(stdioCmd(flags))
	cmd.AddCommand(modelCmd(flags))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from the settings file, .env file and
// environment, then applies global flag overrides.
func loadConfig(flags *globalFlags) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(flags.envFile, flags.configFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}

	var opts []config.AppConfigOption
	if flags.dataDir != "" {
		opts = append(opts, config.WithDataDir(flags.dataDir))
	}
	if flags.dbURL != "" {
		opts = append(opts, config.WithDBURL(flags.dbURL))
	}
	if flags.logLevel != "" {
		opts = append(opts, config.WithLogLevel(flags.logLevel))
	}
	return cfg.Apply(opts...), nil
}

// setup loads configuration, prepares the data directory and installs the
// logger. The returned context carries a fresh correlation id.
func setup(ctx context.Context, flags *globalFlags, overrides ...config.AppConfigOption) (context.Context, config.AppConfig, *slog.Logger, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, config.AppConfig{}, nil, err
	}
	cfg = cfg.Apply(overrides...)

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, config.AppConfig{}, nil, fmt.Errorf("create data directory: %w", err)
	}

	logger := log.Configure(cfg).Slog()
	ctx = log.WithCorrelationID(ctx, log.NewCorrelationID())
	return ctx, cfg, logger, nil
}
