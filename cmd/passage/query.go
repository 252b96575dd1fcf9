package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/helixml/passage/application/service"
	"github.com/helixml/passage/domain/passage"
	domainservice "github.com/helixml/passage/domain/service"
	"github.com/spf13/cobra"
)

// retrievalFlags are shared by query and ask.
type retrievalFlags struct {
	topK          int
	minSimilarity float64
	jsonOutput    bool
}

func (f *retrievalFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "Number of passages to retrieve (1-10, default from config)")
	cmd.Flags().Float64Var(&f.minSimilarity, "min-similarity", 0, "Drop passages below this cosine similarity")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print JSON instead of text")
}

func (f *retrievalFlags) options(cmd *cobra.Command) ([]service.SearchOption, error) {
	var opts []service.SearchOption
	if cmd.Flags().Changed("top-k") {
		if f.topK < 1 || f.topK > domainservice.MaxTopK {
			return nil, fmt.Errorf("--top-k must be between 1 and %d, got %d", domainservice.MaxTopK, f.topK)
		}
		opts = append(opts, service.WithTopK(f.topK))
	}
	if cmd.Flags().Changed("min-similarity") {
		opts = append(opts, service.WithMinSimilarity(f.minSimilarity))
	}
	return opts, nil
}

func queryCmd(flags *globalFlags) *cobra.Command {
	var rf retrievalFlags

	cmd := &cobra.Command{
		Use:   "query QUESTION...",
		Short: "Retrieve the passages most similar to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := rf.options(cmd)
			if err != nil {
				return err
			}

			ctx, cfg, logger, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}

			client, err := newClient(cfg, logger, true)
			if err != nil {
				return err
			}
			defer closeClient(client, logger)

			results, err := client.Search.Query(ctx, strings.Join(args, " "), opts...)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			if rf.jsonOutput {
				return writeResultsJSON(cmd.OutOrStdout(), results)
			}
			writeResults(cmd.OutOrStdout(), results)
			return nil
		},
	}

	rf.register(cmd)

	return cmd
}

type resultJSON struct {
	ID         int64            `json:"id"`
	Text       string           `json:"text"`
	Metadata   passage.Metadata `json:"metadata"`
	Similarity float64          `json:"similarity"`
}

func toResultJSON(results []passage.Result) []resultJSON {
	out := make([]resultJSON, len(results))
	for i, r := range results {
		out[i] = resultJSON{ID: r.ID(), Text: r.Text(), Metadata: r.Metadata(), Similarity: r.Similarity()}
	}
	return out
}

func writeResultsJSON(w io.Writer, results []passage.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toResultJSON(results))
}

func writeResults(w io.Writer, results []passage.Result) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "no matching passages")
		return
	}
	for i, r := range results {
		label := fmt.Sprintf("#%d id=%d similarity=%.3f", i+1, r.ID(), r.Similarity())
		if page, ok := r.Metadata().Page(); ok {
			label += fmt.Sprintf(" page=%d", page)
		}
		if source, ok := r.Metadata()["source"].(string); ok {
			label += " source=" + source
		}
		_, _ = fmt.Fprintln(w, label)
		_, _ = fmt.Fprintln(w, r.Text())
		_, _ = fmt.Fprintln(w)
	}
}
