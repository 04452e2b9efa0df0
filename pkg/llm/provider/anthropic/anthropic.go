// Package anthropic streams completions from the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/papercomputeco/devcoach/pkg/llm"
)

// maxTokens bounds every answer. The Messages API requires an explicit limit.
const maxTokens = 1024

// provider implements the Provider interface for Anthropic's API.
type provider struct {
	client anthropic.Client
}

// New returns a provider targeting baseURL (e.g. "https://api.anthropic.com").
func New(baseURL, apiKey string) *provider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &provider{client: anthropic.NewClient(opts...)}
}

func (p *provider) Name() string {
	return "anthropic"
}

func (p *provider) StreamChat(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  convertMessages(req.Dialogue()),
	}
	if system := req.System(); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	s := p.client.Messages.NewStreaming(ctx, params)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	return &stream{s: s}, nil
}

// convertMessages maps the dialogue onto Anthropic's user/assistant turns.
// The system prompt travels separately in MessageNewParams.System.
func convertMessages(messages []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropic.NewUserMessage(block))
	}
	return out
}

// stream adapts the SDK's event stream to llm.Stream. Every event becomes a
// unit; only text deltas carry content.
type stream struct {
	s       *ssestream.Stream[anthropic.MessageStreamEventUnion]
	current llm.Delta
}

func (s *stream) Next() bool {
	if !s.s.Next() {
		return false
	}

	s.current = llm.Delta{}
	switch ev := s.s.Current().AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
			s.current.Content = d.Text
		}
	}
	return true
}

func (s *stream) Current() llm.Delta {
	return s.current
}

func (s *stream) Err() error {
	if err := s.s.Err(); err != nil {
		return fmt.Errorf("anthropic streaming error: %w", err)
	}
	return nil
}

func (s *stream) Close() error {
	return s.s.Close()
}
