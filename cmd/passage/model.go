package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/helixml/passage/internal/config"
	"github.com/knights-analytics/hugot"
	"github.com/spf13/cobra"
)

// defaultModel is a small sentence-transformers model with an ONNX export.
const defaultModel = "sentence-transformers/all-MiniLM-L6-v2"

func modelCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the local embedding model",
	}
	cmd.AddCommand(modelDownloadCmd(flags))
	return cmd
}

func modelDownloadCmd(flags *globalFlags) *cobra.Command {
	var (
		name     string
		onnxPath string
	)

	cmd := &cobra.Command{
		Use:   "download [DEST]",
		Short: "Download an embedding model from Hugging Face",
		Long: `Download a sentence-transformers ONNX model for local embedding. DEST
defaults to LOCAL_EMBEDDING_MODEL_DIR, or {data_dir}/models.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			dest := modelDir(cfg)
			if len(args) == 1 {
				dest = args[0]
			}
			return downloadModel(cmd, cfg, name, onnxPath, dest)
		},
	}

	cmd.Flags().StringVar(&name, "name", defaultModel, "Hugging Face model repository")
	cmd.Flags().StringVar(&onnxPath, "onnx-file", "onnx/model.onnx", "Path of the ONNX file inside the repository")

	return cmd
}

func downloadModel(cmd *cobra.Command, cfg config.AppConfig, name, onnxPath, dest string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(filepath.Join(dest, "tokenizer.json")); err == nil {
		_, _ = fmt.Fprintf(out, "model already present at %s\n", dest)
		return nil
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	_, _ = fmt.Fprintf(out, "downloading %s to %s...\n", name, dest)

	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = onnxPath
	if token := os.Getenv("HF_TOKEN"); token != "" {
		opts.AuthToken = token
	}
	path, err := hugot.DownloadModel(name, dest, opts)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}

	_, _ = fmt.Fprintf(out, "model downloaded to %s\n", path)
	if cfg.LocalModelDir() == "" && dest != modelDir(cfg) {
		_, _ = fmt.Fprintf(out, "set LOCAL_EMBEDDING_MODEL_DIR=%s to use it\n", dest)
	}
	return nil
}
