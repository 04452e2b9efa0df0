package provider

import (
	"context"
	"fmt"

	"github.com/papercomputeco/devcoach/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/devcoach/pkg/llm/provider/gemini"
	"github.com/papercomputeco/devcoach/pkg/llm/provider/ollama"
	"github.com/papercomputeco/devcoach/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{OpenAI, Anthropic, Gemini, Ollama}
}

// New creates a new Provider instance for the given configuration.
// Returns an error if the provider type is not recognized.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Name {
	case OpenAI:
		return openai.New(cfg.BaseURL, cfg.APIKey), nil
	case Anthropic:
		return anthropic.New(cfg.BaseURL, cfg.APIKey), nil
	case Gemini:
		p, err := gemini.New(ctx, cfg.BaseURL, cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		return p, nil
	case Ollama:
		return ollama.New(cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Name, SupportedProviders())
	}
}
