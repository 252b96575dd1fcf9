package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

const hugotBatchMax = 16

// HugotEmbedding runs a sentence-transformer ONNX model in process through
// hugot. The model directory must contain tokenizer.json, either directly or
// in one subdirectory. The session is created on first use.
//
// The ORT backend allows one live session per process, so at most one
// HugotEmbedding should be open at a time when built with -tags ORT.
type HugotEmbedding struct {
	modelDir string

	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

// NewHugotEmbedding creates a HugotEmbedding over the model files in modelDir.
func NewHugotEmbedding(modelDir string) *HugotEmbedding {
	return &HugotEmbedding{modelDir: modelDir}
}

// Available reports whether model files exist in the model directory.
func (h *HugotEmbedding) Available() bool {
	_, err := h.modelPath()
	return err == nil
}

// modelPath returns modelDir itself or its first subdirectory holding tokenizer.json.
func (h *HugotEmbedding) modelPath() (string, error) {
	if _, err := os.Stat(filepath.Join(h.modelDir, "tokenizer.json")); err == nil {
		return h.modelDir, nil
	}
	entries, err := os.ReadDir(h.modelDir)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrModelNotFound, h.modelDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(h.modelDir, entry.Name())
		if _, err := os.Stat(filepath.Join(candidate, "tokenizer.json")); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no tokenizer.json under %s", ErrModelNotFound, h.modelDir)
}

// initialize must be called with mu held.
func (h *HugotEmbedding) initialize() error {
	if h.pipeline != nil {
		return nil
	}

	modelPath, err := h.modelPath()
	if err != nil {
		return err
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "passage-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	})
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	h.session = session
	h.pipeline = pipeline
	return nil
}

// Capacity returns the maximum number of texts per Embed call.
func (h *HugotEmbedding) Capacity() int { return hugotBatchMax }

// Embed generates embeddings with the local model. Inference is serialized.
func (h *HugotEmbedding) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}
	if len(texts) > hugotBatchMax {
		return EmbeddingResponse{}, fmt.Errorf("embed: %d texts exceeds capacity %d", len(texts), hugotBatchMax)
	}
	if err := ctx.Err(); err != nil {
		return EmbeddingResponse{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.initialize(); err != nil {
		return EmbeddingResponse{}, fmt.Errorf("initialize hugot: %w", err)
	}

	result, err := h.pipeline.RunPipeline(texts)
	if err != nil {
		return EmbeddingResponse{}, fmt.Errorf("run embedding pipeline: %w", err)
	}

	embeddings := make([][]float64, len(result.Embeddings))
	for i, vec32 := range result.Embeddings {
		vec64 := make([]float64, len(vec32))
		for j, v := range vec32 {
			vec64[j] = float64(v)
		}
		embeddings[i] = vec64
	}
	return NewEmbeddingResponse(embeddings, NewUsage(0, 0, 0)), nil
}

// Close destroys the session if one was created.
func (h *HugotEmbedding) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	err := h.session.Destroy()
	h.session = nil
	h.pipeline = nil
	return err
}

var _ Embedder = (*HugotEmbedding)(nil)
