package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Configuration errors. They are fatal: devcoach serve refuses to start
// rather than failing on the first chat request.
var (
	ErrMissingAPIKey  = errors.New("missing provider API key: set DEVCOACH_RELAY_API_KEY, OPENROUTER_API_KEY or relay.api_key")
	ErrMissingBaseURL = errors.New("missing provider base URL: set DEVCOACH_RELAY_BASE_URL or relay.base_url")
	ErrMissingModel   = errors.New("missing model: set DEVCOACH_RELAY_MODEL or relay.model")
)

// keylessProviders can run without an API key.
var keylessProviders = map[string]struct{}{
	"ollama": {},
}

// Validate checks that the relay has everything it needs to reach its
// completion provider.
func (r RelayConfig) Validate() error {
	if r.Provider == "" {
		return errors.New("missing provider: set DEVCOACH_RELAY_PROVIDER or relay.provider")
	}

	if _, keyless := keylessProviders[r.Provider]; !keyless && r.APIKey == "" {
		return ErrMissingAPIKey
	}

	if r.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid provider base URL %q: %w", r.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid provider base URL %q: must be absolute (scheme and host)", r.BaseURL)
	}

	if r.Model == "" {
		return ErrMissingModel
	}

	return nil
}
