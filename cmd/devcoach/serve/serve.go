// Package servecmder provides the relay server command.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/devcoach/pkg/config"
	"github.com/papercomputeco/devcoach/pkg/llm/provider"
	"github.com/papercomputeco/devcoach/pkg/logger"
	"github.com/papercomputeco/devcoach/relay"
)

type serveCommander struct {
	listen       string
	providerName string
	baseURL      string
	model        string

	jsonLogs bool
	logFile  string
	debug    bool

	cfg    *config.Config
	logger *slog.Logger
}

// serveFlags are the registry flags bound into viper for this command.
var serveFlags = []string{
	config.FlagListen,
	config.FlagProvider,
	config.FlagBaseURL,
	config.FlagModel,
}

const serveLongDesc string = `Run the Dev Coach relay.

The relay accepts a conversation as a JSON array of {role, content} messages
on POST /api/chat, prepends the Dev Coach system prompt, and streams the
model's answer back as raw UTF-8 text while it is being generated.

Supported providers: openai (any OpenAI-compatible API, OpenRouter by default),
anthropic, gemini, ollama.

The API key is read from DEVCOACH_RELAY_API_KEY, OPENROUTER_API_KEY, a .env
file, or relay.api_key in config.toml.

Examples:
  devcoach serve
  devcoach serve --provider anthropic --base-url https://api.anthropic.com --model claude-3-5-haiku-latest
  devcoach serve --listen :8080 --json-logs`

const serveShortDesc string = "Run the Dev Coach relay"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.providerName)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Emit structured JSON logs instead of pretty console output")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(stderr io.Writer) error {
	closeLog, err := c.newLogger(stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := c.cfg.Relay.Validate(); err != nil {
		return fmt.Errorf("invalid relay configuration: %w", err)
	}

	prov, err := provider.New(context.Background(), provider.Config{
		Name:    c.cfg.Relay.Provider,
		BaseURL: c.cfg.Relay.BaseURL,
		APIKey:  c.cfg.Relay.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	r, err := relay.New(relay.Config{
		ListenAddr: c.cfg.Relay.Listen,
		Model:      c.cfg.Relay.Model,
	}, prov, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	c.logger.Debug("provider configured", "provider", prov.Name(), "base_url", c.cfg.Relay.BaseURL)

	errChan := make(chan error, 1)
	go func() {
		errChan <- r.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("relay error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return r.Close()
	}
}

// newLogger builds the console logger and, with --log-file, fans records out
// to a JSON file as well. The returned func closes the file.
func (c *serveCommander) newLogger(stderr io.Writer) (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithWriter(stderr),
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(!c.jsonLogs),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithWriter(f),
		logger.WithJSON(true),
	)
	c.logger = logger.Multi(console, file)
	return func() { _ = f.Close() }, nil
}
