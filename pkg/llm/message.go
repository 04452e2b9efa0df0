package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // plain text
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// ErrEmptyConversation is returned by DecodeConversation for an empty array.
var ErrEmptyConversation = errors.New("conversation must contain at least one message")

// DecodeConversation parses a caller-supplied conversation: a bare JSON array
// of {role, content} objects. Only the user and assistant roles are accepted;
// the system role is reserved for the relay's own prompt.
func DecodeConversation(payload []byte) ([]Message, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var messages []Message
	if err := dec.Decode(&messages); err != nil {
		return nil, fmt.Errorf("body must be a JSON array of {role, content} objects: %w", err)
	}
	if dec.More() {
		return nil, errors.New("body must contain a single JSON array")
	}
	if messages == nil {
		return nil, errors.New("body must be a JSON array of {role, content} objects")
	}
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}

	for i, m := range messages {
		switch m.Role {
		case RoleUser, RoleAssistant:
		case RoleSystem:
			return nil, fmt.Errorf("message %d: role %q is not allowed", i, m.Role)
		default:
			return nil, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}

	return messages, nil
}
