package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helixml/passage"
	"github.com/helixml/passage/application/service"
	"github.com/spf13/cobra"
)

func askCmd(flags *globalFlags) *cobra.Command {
	var (
		rf          retrievalFlags
		model       string
		temperature float64
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Answer a question from the retrieved passages",
		Long: `Retrieve the passages most similar to the question and ask the configured
answer endpoint (ANSWER_ENDPOINT_*) to answer using only those passages.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searchOpts, err := rf.options(cmd)
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

			if client.Answers == nil {
				return fmt.Errorf("answer generation is not configured, set ANSWER_ENDPOINT_API_KEY or ANSWER_ENDPOINT_BASE_URL: %w", passage.ErrNoTextProvider)
			}

			opts := []service.AnswerOption{
				service.WithSearch(searchOpts...),
				service.WithTemperature(temperature),
			}
			if model != "" {
				opts = append(opts, service.WithModel(model))
			}

			answer, err := client.Answers.Ask(ctx, strings.Join(args, " "), opts...)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			if rf.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Answer   string       `json:"answer"`
					Model    string       `json:"model,omitempty"`
					Passages []resultJSON `json:"passages"`
				}{answer.Text(), answer.Model(), toResultJSON(answer.Passages())})
			}

			_, _ = fmt.Fprintln(out, answer.Text())
			if showSources {
				_, _ = fmt.Fprintln(out)
				writeResults(out, answer.Passages())
			}
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&model, "model", "", "Chat model (default from ANSWER_ENDPOINT_MODEL)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the passages used as context")

	return cmd
}
