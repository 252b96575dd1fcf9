package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/domain/passage"
	"github.com/helixml/passage/infrastructure/loader"
	"github.com/spf13/cobra"
)

func ingestCmd(flags *globalFlags) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Chunk, embed and store documents",
		Long: `Read text documents, split them into semantic chunks, embed the chunks and
store them. Pages within a document are separated by form feeds. Use "-" to
read from stdin.

Ingesting into a store that already holds chunks fails unless --rebuild is
given, in which case the store is emptied and rebuilt from these documents.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, logger, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}

			pages, err := loadPages(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			client, err := newClient(cfg, logger, false)
			if err != nil {
				return err
			}
			defer closeClient(client, logger)

			result, err := client.Ingestion.Ingest(ctx, pages, service.WithRebuild(rebuild))
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored %d chunks from %d pages (%d produced, dimension %d) in %s\n",
				result.Stored(), result.Pages(), result.Chunks(), result.Dimension(), result.Duration().Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop the existing store contents before ingesting")

	return cmd
}

// loadPages reads every document in order. "-" reads stdin.
func loadPages(stdin io.Reader, paths []string) ([]passage.Page, error) {
	var pages []passage.Page
	for _, path := range paths {
		var (
			doc []passage.Page
			err error
		)
		if path == "-" {
			doc, err = loader.Read(stdin, "stdin")
		} else {
			doc, err = loader.Load(path)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		slog.Debug("loaded document", slog.String("path", path), slog.Int("pages", len(doc)))
		pages = append(pages, doc...)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no text found in %d document(s)", len(paths))
	}
	return pages, nil
}
