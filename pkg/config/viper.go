package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/devcoach/pkg/dotdir"
)

// EnvPrefix is the environment variable prefix, e.g. DEVCOACH_RELAY_LISTEN.
const EnvPrefix = "DEVCOACH"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), loads a .env file from the working
// directory if present, and binds environment variables with the DEVCOACH_
// prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (DEVCOACH_RELAY_API_KEY, OPENROUTER_API_KEY, ...)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
		if err := v.ReadInConfig(); err != nil {
			// Config file not found errors are fine, defaults will apply.
			if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	// A missing .env is the common case. Existing process env always wins
	// over .env values.
	_ = godotenv.Load()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The API key also honors the provider-native variable name.
	if err := v.BindEnv("relay.api_key", EnvPrefix+"_RELAY_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding api key env: %w", err)
	}

	return v, nil
}

// FromViper materializes a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Relay: RelayConfig{
			Provider: v.GetString("relay.provider"),
			BaseURL:  v.GetString("relay.base_url"),
			APIKey:   v.GetString("relay.api_key"),
			Model:    v.GetString("relay.model"),
			Listen:   v.GetString("relay.listen"),
		},
		Client: ClientConfig{
			RelayTarget: v.GetString("client.relay_target"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("relay.provider", d.Relay.Provider)
	v.SetDefault("relay.base_url", d.Relay.BaseURL)
	v.SetDefault("relay.api_key", d.Relay.APIKey)
	v.SetDefault("relay.model", d.Relay.Model)
	v.SetDefault("relay.listen", d.Relay.Listen)

	v.SetDefault("client.relay_target", d.Client.RelayTarget)
}
