package config

const (
	defaultProvider    = "openai"
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultModel       = "gpt-3.5-turbo"
	defaultRelayListen = ":3000"

	defaultClientRelayTarget = "http://localhost:3000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
// The API key has no default.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Provider: defaultProvider,
			BaseURL:  defaultBaseURL,
			Model:    defaultModel,
			Listen:   defaultRelayListen,
		},
		Client: ClientConfig{
			RelayTarget: defaultClientRelayTarget,
		},
	}
}
