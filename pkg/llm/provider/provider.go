package provider

import (
	"context"

	"github.com/papercomputeco/devcoach/pkg/llm"
)

// Provider is a hosted (or local) chat completion service that can stream
// its answer back incrementally.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai", "anthropic", "gemini", "ollama")
	Name() string

	// StreamChat opens a streamed completion for req. It returns an error when
	// the upstream rejects the request before any unit is produced (auth
	// failure, network failure, non-2xx status). Errors after that point
	// surface through the returned stream's Err.
	StreamChat(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error)
}

// Config selects and configures a provider implementation.
type Config struct {
	// Name is one of SupportedProviders().
	Name string

	// BaseURL is the provider endpoint.
	BaseURL string

	// APIKey is the provider credential. Unused by ollama.
	APIKey string
}
