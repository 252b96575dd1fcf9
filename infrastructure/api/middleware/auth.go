package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-KEY"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	apiKeys [][]byte
	enabled bool
}

// NewAuthConfigWithKeys creates an AuthConfig accepting any of apiKeys.
// Empty keys are ignored; with no keys authentication is disabled.
func NewAuthConfigWithKeys(apiKeys []string) AuthConfig {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return AuthConfig{}
	}
	return AuthConfig{apiKeys: keys, enabled: true}
}

// Enabled returns true if authentication is enabled.
func (c AuthConfig) Enabled() bool { return c.enabled }

func (c AuthConfig) valid(key string) bool {
	candidate := []byte(key)
	ok := false
	for _, k := range c.apiKeys {
		if subtle.ConstantTimeCompare(k, candidate) == 1 {
			ok = true
		}
	}
	return ok
}

func (c AuthConfig) check(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		WriteError(w, r, NewAuthenticationError(APIKeyHeader+" header is required"), nil)
		return false
	}
	if !c.valid(key) {
		WriteError(w, r, NewAuthenticationError("invalid API key"), nil)
		return false
	}
	return true
}

// APIKey returns a middleware that requires X-API-KEY header authentication
// on every request. Without configured keys it passes all requests through.
func APIKey(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.enabled && !config.check(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth creates APIKey middleware from a slice of keys.
func APIKeyAuth(apiKeys []string) func(http.Handler) http.Handler {
	return APIKey(NewAuthConfigWithKeys(apiKeys))
}
