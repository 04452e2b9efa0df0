// Package openai streams chat completions from any OpenAI-compatible
// endpoint (OpenAI, OpenRouter, vLLM, ...) using the Chat Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/papercomputeco/devcoach/pkg/llm"
)

// provider implements the Provider interface for OpenAI-compatible APIs.
type provider struct {
	client openai.Client
}

// New returns a provider targeting baseURL (e.g. "https://openrouter.ai/api/v1").
// Retries are disabled: a failed completion is reported, never replayed.
func New(baseURL, apiKey string) *provider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &provider{client: openai.NewClient(opts...)}
}

func (p *provider) Name() string {
	return "openai"
}

func (p *provider) StreamChat(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: convertMessages(req.Messages),
	}

	s := p.client.Chat.Completions.NewStreaming(ctx, params)

	// The HTTP exchange happens inside NewStreaming, so a rejected request
	// is already visible here.
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	return &stream{s: s}, nil
}

func convertMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// stream adapts the SDK's SSE stream to llm.Stream.
type stream struct {
	s       *ssestream.Stream[openai.ChatCompletionChunk]
	current llm.Delta
}

func (s *stream) Next() bool {
	if !s.s.Next() {
		return false
	}

	chunk := s.s.Current()
	s.current = llm.Delta{}
	if len(chunk.Choices) > 0 {
		s.current.Content = chunk.Choices[0].Delta.Content
	}
	return true
}

func (s *stream) Current() llm.Delta {
	return s.current
}

func (s *stream) Err() error {
	if err := s.s.Err(); err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}
	return nil
}

func (s *stream) Close() error {
	return s.s.Close()
}
