// Package relay provides the chat relay: a stateless HTTP endpoint that
// forwards a conversation to the configured completion provider and streams
// the answer back as raw text.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/papercomputeco/devcoach/pkg/llm"
	"github.com/papercomputeco/devcoach/pkg/llm/provider"
)

// ChatPath is the relay's single chat endpoint.
const ChatPath = "/api/chat"

// Relay forwards conversations to a completion provider and streams the
// answer back to the caller. It holds no per-conversation state.
type Relay struct {
	config   Config
	provider provider.Provider
	logger   *slog.Logger
	server   *fiber.App
}

// New creates a new Relay backed by the given provider.
func New(config Config, prov provider.Provider, logger *slog.Logger) (*Relay, error) {
	if prov == nil {
		return nil, errors.New("provider is required")
	}
	if config.Model == "" {
		return nil, errors.New("model is required")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	r := &Relay{
		config:   config,
		provider: prov,
		logger:   logger,
		server:   app,
	}

	app.Get("/ping", r.handlePing)
	app.Post(ChatPath, r.handleChat)

	return r, nil
}

// Run starts the relay server on the configured listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"provider", r.provider.Name(),
		"model", r.config.Model,
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"provider", r.provider.Name(),
		"model", r.config.Model,
	)

	return r.server.Listener(listener)
}

// Close gracefully shuts down the relay.
func (r *Relay) Close() error {
	return r.server.Shutdown()
}

func (r *Relay) handlePing(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// handleChat validates the inbound conversation, opens a provider stream and
// relays each text delta to the client as it arrives.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()
	logger := r.logger.With("request_id", c.GetRespHeader(fiber.HeaderXRequestID))

	inbound, err := llm.DecodeConversation(c.Body())
	if err != nil {
		logger.Warn("rejected chat request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	req := &llm.ChatRequest{
		Model:    r.config.Model,
		Messages: append([]llm.Message{llm.NewTextMessage(llm.RoleSystem, SystemPrompt)}, inbound...),
		Stream:   true,
	}

	logger.Debug("forwarding chat request",
		"provider", r.provider.Name(),
		"model", req.Model,
		"message_count", len(inbound),
	)

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the stream is
	// consumed asynchronously after that.
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := r.provider.StreamChat(ctx, req)
	if err != nil {
		cancel()
		logger.Error("upstream request failed",
			"provider", r.provider.Name(),
			"error", err,
		)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "upstream request failed"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// io.Pipe + SetBodyStream: pw.Write blocks until fasthttp's chunked
	// writer has consumed the data and flushed it to the socket, so every
	// delta reaches the client as its own chunk.
	pr, pw := io.Pipe()
	go r.pump(cancel, stream, pw, logger, startTime)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// pump copies the text of each delta into pw. A provider error closes the
// pipe with that error, which aborts the chunked response without its
// terminating chunk so the client observes an abnormal end of stream.
func (r *Relay) pump(cancel context.CancelFunc, stream llm.Stream, pw *io.PipeWriter, logger *slog.Logger, startTime time.Time) {
	defer cancel()
	defer stream.Close()

	var fragments, written int
	for stream.Next() {
		delta := stream.Current()
		if delta.Empty() {
			continue
		}

		n, err := io.WriteString(pw, delta.Content)
		written += n
		if err != nil {
			// The client went away; closing the stream cancels the upstream call.
			logger.Warn("client disconnected mid-stream",
				"fragments", fragments,
				"bytes", written,
				"error", err,
			)
			_ = pw.CloseWithError(err)
			return
		}
		fragments++
	}

	if err := stream.Err(); err != nil {
		logger.Error("upstream stream failed",
			"provider", r.provider.Name(),
			"fragments", fragments,
			"bytes", written,
			"error", err,
		)
		_ = pw.CloseWithError(err)
		return
	}

	logger.Info("chat completed",
		"provider", r.provider.Name(),
		"fragments", fragments,
		"bytes", written,
		"duration", time.Since(startTime),
	)
	_ = pw.Close()
}
