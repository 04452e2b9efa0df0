// Package conversation holds the chat client's state and drives the
// send/stream cycle against a relay.
package conversation

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/devcoach/pkg/llm"
)

// ErrorMessage replaces the assistant placeholder when a send fails.
const ErrorMessage = "I'm sorry, but I encountered an error. Please try again later."

// DefaultGreeting is the assistant message "devcoach chat" opens with.
const DefaultGreeting = "Hello, I am Dev Coach, your personal Software Engineering AI companion. How can I help you land that $100,000+ job today?"

var (
	// ErrBusy is returned when a send is attempted while another is in flight.
	ErrBusy = errors.New("a message is already being sent")

	// ErrEmptyInput is returned when the pending input is blank.
	ErrEmptyInput = errors.New("nothing to send")
)

// State is the phase of the send cycle.
type State int

const (
	Idle State = iota
	Sending
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// EventKind identifies an observable change.
type EventKind int

const (
	EventBegin EventKind = iota
	EventStreaming
	EventFragment
	EventFailed
	EventSettled
	EventCleared
	EventInput
)

// Event describes one observable change to a Conversation.
type Event struct {
	Kind EventKind

	// Turn is the send the event belongs to. Zero for EventCleared and EventInput.
	Turn Turn

	// Fragment is the text appended by an EventFragment.
	Fragment string
}

// Turn identifies the assistant placeholder a send writes into: its index in
// the message list and the generation of the list it was appended to.
type Turn struct {
	Index      int
	Generation uint64
}

// Conversation is the client-side chat state: the ordered message list, the
// pending input and the send cycle phase. It is safe for concurrent use; the
// send cycle runs on its own goroutine while a UI reads and clears.
type Conversation struct {
	mu         sync.Mutex
	messages   []llm.Message
	input      string
	state      State
	generation uint64
	observers  []func(Event)
}

// Option configures a Conversation created with New.
type Option func(*Conversation)

// WithGreeting seeds the conversation with an opening assistant message.
func WithGreeting(text string) Option {
	return func(c *Conversation) {
		c.messages = append(c.messages, llm.NewTextMessage(llm.RoleAssistant, text))
	}
}

func New(opts ...Option) *Conversation {
	c := &Conversation{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to be called after every observable change. It is
// called without the conversation's lock held, so it may read state.
func (c *Conversation) OnChange(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Messages returns a snapshot of the message list.
func (c *Conversation) Messages() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Message(nil), c.messages...)
}

func (c *Conversation) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

func (c *Conversation) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
	c.emit(Event{Kind: EventInput})
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a send is in flight.
func (c *Conversation) Busy() bool {
	return c.State() != Idle
}

func (c *Conversation) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Clear empties the message list. It is allowed in any state. An in-flight
// send keeps running but its writes are dropped, and the conversation stays
// busy until that send settles.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.generation++
	c.mu.Unlock()
	c.emit(Event{Kind: EventCleared})
}

// begin moves Idle to Sending: it appends the pending input as a user message
// plus an empty assistant placeholder, clears the input and returns the
// placeholder's Turn along with the history to submit.
func (c *Conversation) begin() (Turn, []llm.Message, error) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return Turn{}, nil, ErrBusy
	}
	if strings.TrimSpace(c.input) == "" {
		c.mu.Unlock()
		return Turn{}, nil, ErrEmptyInput
	}

	c.messages = append(c.messages, llm.NewTextMessage(llm.RoleUser, c.input))
	history := append([]llm.Message(nil), c.messages...)
	c.messages = append(c.messages, llm.NewTextMessage(llm.RoleAssistant, ""))
	c.input = ""
	c.state = Sending

	turn := Turn{Index: len(c.messages) - 1, Generation: c.generation}
	c.mu.Unlock()

	c.emit(Event{Kind: EventBegin, Turn: turn})
	return turn, history, nil
}

func (c *Conversation) streaming(t Turn) {
	c.mu.Lock()
	c.state = Streaming
	c.mu.Unlock()
	c.emit(Event{Kind: EventStreaming, Turn: t})
}

// appendFragment appends text to the placeholder identified by t. Writes for
// a cleared generation are dropped and reported as false.
func (c *Conversation) appendFragment(t Turn, text string) bool {
	c.mu.Lock()
	if !c.owns(t) {
		c.mu.Unlock()
		return false
	}
	c.messages[t.Index].Content += text
	c.mu.Unlock()

	c.emit(Event{Kind: EventFragment, Turn: t, Fragment: text})
	return true
}

// fail overwrites the placeholder with ErrorMessage and settles the send.
func (c *Conversation) fail(t Turn) {
	c.mu.Lock()
	if c.owns(t) {
		c.messages[t.Index].Content = ErrorMessage
	}
	c.state = Idle
	c.mu.Unlock()
	c.emit(Event{Kind: EventFailed, Turn: t})
}

// settle ends the send cycle.
func (c *Conversation) settle(t Turn) {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()
	c.emit(Event{Kind: EventSettled, Turn: t})
}

// owns reports whether t still addresses a live placeholder. Callers hold mu.
func (c *Conversation) owns(t Turn) bool {
	return t.Generation == c.generation && t.Index < len(c.messages)
}

func (c *Conversation) emit(ev Event) {
	c.mu.Lock()
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
