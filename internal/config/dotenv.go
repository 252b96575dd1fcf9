package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file.
// If path is empty, it loads from ".env" in the current directory.
// If the file does not exist, it silently returns nil (not an error).
// Existing environment variables are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}

// LoadConfig builds the configuration in priority order: defaults, then the
// YAML settings file (if settingsPath is non-empty), then .env, then the
// environment. Secrets missing from the result are filled from the TOML
// secrets file.
func LoadConfig(envPath, settingsPath string) (AppConfig, error) {
	cfg := NewAppConfig()

	if settingsPath != "" {
		file, err := LoadSettingsFile(settingsPath)
		if err != nil {
			return AppConfig{}, err
		}
		cfg = file.Apply(cfg)
	}

	if err := LoadDotEnv(envPath); err != nil {
		return AppConfig{}, err
	}

	envCfg, err := LoadFromEnv()
	if err != nil {
		return AppConfig{}, err
	}
	cfg = envCfg.Apply(cfg)

	secrets, err := LoadSecrets(cfg.SecretsFile())
	if err != nil {
		return AppConfig{}, err
	}
	return secrets.Apply(cfg), nil
}
