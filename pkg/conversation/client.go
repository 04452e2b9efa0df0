package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/devcoach/pkg/logger"
)

const (
	chatPath = "/api/chat"
	pingPath = "/ping"

	readBufferSize = 4096
)

// Client sends a Conversation to a relay and streams the answer into it.
type Client struct {
	chatURL    string
	pingURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client created with NewClient.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used to reach the relay.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the relay at target (e.g., "http://localhost:3000").
func NewClient(target string, opts ...ClientOption) *Client {
	base := strings.TrimRight(target, "/")
	c := &Client{
		chatURL: base + chatPath,
		pingURL: base + pingPath,

		// No timeout: an answer streams for as long as the model generates.
		httpClient: &http.Client{},
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send submits the conversation's pending input and streams the reply into
// the assistant placeholder. It blocks until the send settles.
//
// ErrBusy and ErrEmptyInput report a send that did nothing. Every other
// failure is absorbed: the placeholder receives ErrorMessage, the conversation
// returns to Idle and Send returns nil.
func (c *Client) Send(ctx context.Context, conv *Conversation) error {
	turn, history, err := conv.begin()
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, history)
	if err != nil {
		c.logger.Error("chat request failed", "url", c.chatURL, "error", err)
		conv.fail(turn)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("relay returned error",
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(msg)),
		)
		conv.fail(turn)
		return nil
	}

	conv.streaming(turn)

	received, err := c.consume(resp.Body, conv, turn)
	if err != nil {
		c.logger.Warn("response stream ended abnormally", "error", err, "received", received)
		if !received {
			conv.fail(turn)
			return nil
		}
	}

	conv.settle(turn)
	return nil
}

// Ping checks that the relay is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pingURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reaching relay: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay ping returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, history any) (*http.Response, error) {
	body, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshaling conversation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending conversation", "url", c.chatURL, "bytes", len(body))
	return c.httpClient.Do(req)
}

// consume reads the body chunk by chunk and appends each decoded fragment to
// the turn's placeholder. It reports whether any text arrived and the read
// error that ended the body, if it was not a clean EOF.
func (c *Client) consume(body io.Reader, conv *Conversation, turn Turn) (bool, error) {
	dec := NewDecoder()
	buf := make([]byte, readBufferSize)
	received := false

	var readErr error
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if text := dec.Decode(buf[:n]); text != "" {
				conv.appendFragment(turn, text)
				received = true
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}

	if tail := dec.Flush(); tail != "" {
		conv.appendFragment(turn, tail)
		received = true
	}

	return received, readErr
}
