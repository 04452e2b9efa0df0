package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/devcoach/pkg/llm"
)

// MockProvider is a test completion provider that replays scripted deltas
// and records every request it receives.
type MockProvider struct {
	// Deltas are streamed in order for every request.
	Deltas []string

	// StartErr is returned by StreamChat instead of opening a stream.
	StartErr error

	// StreamErr terminates the stream after all Deltas have been produced.
	StreamErr error

	// Gate, when non-nil, must receive (or be closed) before each delta is
	// produced. Tests use it to observe the stream mid-flight.
	Gate chan struct{}

	mu       sync.Mutex
	requests []*llm.ChatRequest
}

func NewMockProvider(deltas ...string) *MockProvider {
	return &MockProvider{Deltas: deltas}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.StartErr != nil {
		return nil, m.StartErr
	}

	return &mockStream{ctx: ctx, deltas: m.Deltas, err: m.StreamErr, gate: m.Gate}, nil
}

// Calls returns how many times StreamChat was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if there was none.
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

type mockStream struct {
	ctx    context.Context
	deltas []string
	err    error
	gate   chan struct{}

	pos     int
	current llm.Delta
	failed  error
	closed  bool
}

func (s *mockStream) Next() bool {
	if s.closed || s.failed != nil || s.pos >= len(s.deltas) {
		if s.failed == nil && s.err != nil {
			s.failed = s.err
		}
		return false
	}

	if s.gate != nil {
		select {
		case <-s.gate:
		case <-s.ctx.Done():
			s.failed = s.ctx.Err()
			return false
		}
	}

	s.current = llm.Delta{Content: s.deltas[s.pos]}
	s.pos++
	return true
}

func (s *mockStream) Current() llm.Delta {
	return s.current
}

func (s *mockStream) Err() error {
	return s.failed
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}
