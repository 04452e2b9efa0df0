package llm

// ChatRequest represents a provider-agnostic chat completion request.
// The relay builds one per inbound conversation and hands it to the
// configured completion provider.
type ChatRequest struct {
	// Model name (e.g., "gpt-3.5-turbo", "claude-3-5-haiku-latest", "llama3.2")
	Model string `json:"model"`

	// Conversation messages, system prompt first.
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream bool `json:"stream"`
}

// System returns the concatenated content of every system message.
// Providers that carry the system prompt outside the message list use it.
func (r *ChatRequest) System() string {
	var s string
	for _, m := range r.Messages {
		if m.Role != RoleSystem {
			continue
		}
		if s != "" {
			s += "\n\n"
		}
		s += m.Content
	}
	return s
}

// Dialogue returns the non-system messages in order.
func (r *ChatRequest) Dialogue() []Message {
	out := make([]Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
