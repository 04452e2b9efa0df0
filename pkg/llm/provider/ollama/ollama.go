package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/devcoach/pkg/llm"
)

// DefaultBaseURL is where a local Ollama listens by default.
const DefaultBaseURL = "http://localhost:11434"

// provider implements the Provider interface for Ollama's chat API.
type provider struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &provider{
		baseURL: strings.TrimRight(baseURL, "/"),

		// No client timeout: completions stream for as long as the model
		// generates. Cancellation comes from the request context.
		httpClient: &http.Client{},
	}
}

func (o *provider) Name() string {
	return "ollama"
}

func (o *provider) StreamChat(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	body := ollamaRequest{
		Model:    req.Model,
		Messages: make([]ollamaMessage, 0, len(req.Messages)),
		Stream:   true,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &stream{body: resp.Body, scanner: scanner}, nil
}

// stream reads one JSON object per line until a chunk reports done.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	current llm.Delta
	err     error
	done    bool
}

func (s *stream) Next() bool {
	if s.done {
		return false
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.err = fmt.Errorf("decoding chunk: %w", err)
			s.done = true
			return false
		}
		if chunk.Error != "" {
			s.err = errors.New(chunk.Error)
			s.done = true
			return false
		}

		s.current = llm.Delta{Content: chunk.Message.Content}
		if chunk.Done {
			s.done = true
		}
		return true
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		s.err = err
		return false
	}

	// EOF without a done chunk means the server went away mid-answer.
	s.err = io.ErrUnexpectedEOF
	return false
}

func (s *stream) Current() llm.Delta {
	return s.current
}

func (s *stream) Err() error {
	if s.err != nil {
		return fmt.Errorf("ollama streaming error: %w", s.err)
	}
	return nil
}

func (s *stream) Close() error {
	return s.body.Close()
}
