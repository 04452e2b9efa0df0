// Package gemini streams completions from the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/papercomputeco/devcoach/pkg/llm"
)

// provider implements the Provider interface for the Gemini API.
type provider struct {
	client *genai.Client
}

// New returns a provider targeting baseURL
// (e.g. "https://generativelanguage.googleapis.com/").
func New(ctx context.Context, baseURL, apiKey string) (*provider, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &provider{client: client}, nil
}

func (p *provider) Name() string {
	return "gemini"
}

func (p *provider) StreamChat(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	var cfg *genai.GenerateContentConfig
	if system := req.System(); system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	seq := p.client.Models.GenerateContentStream(ctx, req.Model, convertMessages(req.Dialogue()), cfg)
	next, stop := iter.Pull2(seq)

	// The request is only sent on the first pull. Pull it now so a rejected
	// request is reported before the caller commits to a streamed response.
	first, err, ok := next()
	if !ok {
		stop()
		return &stream{done: true}, nil
	}
	if err != nil {
		stop()
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	return &stream{next: next, stop: stop, pending: first}, nil
}

// convertMessages maps the dialogue onto Gemini contents. Gemini calls the
// assistant role "model".
func convertMessages(messages []llm.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}

type stream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()

	pending *genai.GenerateContentResponse
	current llm.Delta
	err     error
	done    bool
}

func (s *stream) Next() bool {
	if s.done {
		return false
	}

	resp := s.pending
	s.pending = nil
	if resp == nil {
		r, err, ok := s.next()
		if !ok {
			s.done = true
			return false
		}
		if err != nil {
			s.err = err
			s.done = true
			return false
		}
		resp = r
	}

	s.current = llm.Delta{Content: resp.Text()}
	return true
}

func (s *stream) Current() llm.Delta {
	return s.current
}

func (s *stream) Err() error {
	if s.err != nil {
		return fmt.Errorf("gemini streaming error: %w", s.err)
	}
	return nil
}

func (s *stream) Close() error {
	s.done = true
	if s.stop != nil {
		s.stop()
	}
	return nil
}
