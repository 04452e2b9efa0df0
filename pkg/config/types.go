package config

import (
	"github.com/papercomputeco/devcoach/pkg/utils"
)

// Config represents the persistent devcoach configuration stored as
// config.toml in the .devcoach/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Relay   RelayConfig  `toml:"relay"`
	Client  ClientConfig `toml:"client"`
}

// RelayConfig holds the relay server settings, including the upstream
// completion provider it forwards conversations to.
type RelayConfig struct {
	// Provider selects the completion provider implementation
	// (openai, anthropic, gemini, ollama).
	Provider string `toml:"provider,omitempty"`

	// BaseURL is the provider endpoint, e.g. "https://openrouter.ai/api/v1".
	BaseURL string `toml:"base_url,omitempty"`

	// APIKey is the provider credential. Prefer the DEVCOACH_RELAY_API_KEY or
	// OPENROUTER_API_KEY environment variables over storing it on disk.
	APIKey string `toml:"api_key,omitempty"`

	// Model is the model identifier sent with every completion request.
	Model string `toml:"model,omitempty"`

	// Listen is the relay listen address, e.g. ":3000".
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for "devcoach chat", which connects to a
// running relay. RelayTarget is a full URL (scheme + host + port).
type ClientConfig struct {
	RelayTarget string `toml:"relay_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error

	// secret values are masked when displayed.
	secret bool
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.provider": {
		get: func(c *Config) string { return c.Relay.Provider },
		set: func(c *Config, v string) error { c.Relay.Provider = v; return nil },
	},
	"relay.base_url": {
		get: func(c *Config) string { return c.Relay.BaseURL },
		set: func(c *Config, v string) error { c.Relay.BaseURL = v; return nil },
	},
	"relay.api_key": {
		get:    func(c *Config) string { return c.Relay.APIKey },
		set:    func(c *Config, v string) error { c.Relay.APIKey = v; return nil },
		secret: true,
	},
	"relay.model": {
		get: func(c *Config) string { return c.Relay.Model },
		set: func(c *Config, v string) error { c.Relay.Model = v; return nil },
	},
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error { c.Relay.Listen = v; return nil },
	},
	"client.relay_target": {
		get: func(c *Config) string { return c.Client.RelayTarget },
		set: func(c *Config, v string) error { c.Client.RelayTarget = v; return nil },
	},
}

// displayValue returns the value of key formatted for terminal output,
// masking secrets.
func displayValue(c *Config, key string) string {
	info := configKeys[key]
	v := info.get(c)
	if info.secret {
		return utils.MaskSecret(v)
	}
	return v
}
