package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Secrets holds values from a TOML secrets file. Keys are the lower-cased
// names of the environment variables they stand in for, for example
//
//	embedding_endpoint_api_key = "sk-..."
//	store_remote_token = "..."
type Secrets struct {
	values map[string]any
}

// LoadSecrets reads a TOML secrets file. A missing file yields empty secrets.
func LoadSecrets(path string) (Secrets, error) {
	s := Secrets{values: map[string]any{}}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return Secrets{}, fmt.Errorf("read secrets: %w", err)
	}
	if err := toml.Unmarshal(data, &s.values); err != nil {
		return Secrets{}, fmt.Errorf("parse secrets %s: %w", path, err)
	}
	return s, nil
}

// Lookup returns the environment variable name if set, otherwise the
// matching secrets file entry.
func (s Secrets) Lookup(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, true
	}
	v, ok := s.values[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}

// Apply fills secrets that cfg does not already carry.
func (s Secrets) Apply(cfg AppConfig) AppConfig {
	var opts []AppConfigOption
	if cfg.EmbeddingEndpoint().APIKey() == "" {
		if v, ok := s.Lookup("EMBEDDING_ENDPOINT_API_KEY"); ok {
			opts = append(opts, WithEmbeddingEndpoint(WithAPIKey(v)))
		}
	}
	if cfg.AnswerEndpoint().APIKey() == "" {
		if v, ok := s.Lookup("ANSWER_ENDPOINT_API_KEY"); ok {
			opts = append(opts, WithAnswerEndpoint(WithAPIKey(v)))
		}
	}
	if cfg.Store().Token() == "" {
		if v, ok := s.Lookup("STORE_REMOTE_TOKEN"); ok {
			opts = append(opts, WithStoreRemote("", v, ""))
		}
	}
	if len(cfg.APIKeys()) == 0 {
		if v, ok := s.Lookup("API_KEYS"); ok {
			opts = append(opts, WithAPIKeys(ParseAPIKeys(v)))
		}
	}
	return cfg.Apply(opts...)
}
