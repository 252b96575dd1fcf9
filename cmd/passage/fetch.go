package main

import (
	"errors"
	"fmt"

	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/infrastructure/provision"
	"github.com/helixml/passage/internal/config"
	"github.com/spf13/cobra"
)

func fetchCmd(flags *globalFlags) *cobra.Command {
	var url, token, sha string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the published store if it is missing",
		Long: `Ensure the SQLite store exists locally, downloading it from STORE_REMOTE_URL
when it is missing. The download is verified against STORE_SHA256 when set
and is moved into place only after it is complete.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, logger, err := setup(cmd.Context(), flags, config.WithStoreRemote(url, token, sha))
			if err != nil {
				return err
			}

			req, ok := provisionRequest(cfg)
			if !ok {
				return errors.New("no remote store configured: set STORE_REMOTE_URL or --url")
			}
			if req.LocalPath == "" {
				return fmt.Errorf("store %q is not a local SQLite file", cfg.DBURL())
			}

			provisioner := provision.New(
				provision.WithTimeout(cfg.Store().DownloadTimeout()),
				provision.WithLogger(logger),
			)
			provisioning := service.NewProvisioning(provisioner, req, logger)
			result, err := provisioning.Ensure(ctx)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "store ready at %s (%s)\n", provisioning.Path(), result.Source())
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Remote store URL (default: STORE_REMOTE_URL)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (default: STORE_REMOTE_TOKEN)")
	cmd.Flags().StringVar(&sha, "sha256", "", "Expected SHA-256 of the store file (default: STORE_SHA256)")

	return cmd
}
