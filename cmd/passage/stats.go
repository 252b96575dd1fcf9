package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report the number of stored chunks and their dimension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, logger, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}

			client, err := newClient(cfg, logger, true)
			if err != nil {
				return err
			}
			defer closeClient(client, logger)

			stats, err := client.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "chunks:    %d\n", stats.Chunks)
			_, _ = fmt.Fprintf(out, "dimension: %d\n", stats.Dimension)
			return nil
		},
	}
}
