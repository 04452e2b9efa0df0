// Package chatcmder provides the chat command, the terminal front end of the
// conversation client.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/devcoach/pkg/cliui"
	"github.com/papercomputeco/devcoach/pkg/config"
	"github.com/papercomputeco/devcoach/pkg/conversation"
	"github.com/papercomputeco/devcoach/pkg/llm"
	"github.com/papercomputeco/devcoach/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("coach> ")
)

const (
	exitCommand  = "/exit"
	clearCommand = "/clear"
)

type chatCommander struct {
	relayTarget string
	logFile     string
	debug       bool

	logger *slog.Logger
}

const chatLongDesc string = `Chat with Dev Coach through a running relay.

In a terminal, chat opens a full screen session:
  enter     send the message
  ctrl+l    clear the conversation
  ctrl+t    toggle the dark/light theme
  ctrl+c    quit

When input is piped, chat reads one message per line and prints each answer
as it streams in. Type /clear to start over and /exit to quit.

Logs are only written with --log-file so they never mix with the conversation.

Examples:
  devcoach chat
  devcoach chat --relay-target http://localhost:8080
  echo "How do I write a table-driven test?" | devcoach chat`

const chatShortDesc string = "Chat with Dev Coach"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagRelayTarget})
			cmder.relayTarget = config.FromViper(v).Client.RelayTarget
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagRelayTarget, &cmder.relayTarget)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Write client logs to this file")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, in io.Reader, out io.Writer) error {
	closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	client := conversation.NewClient(c.relayTarget, conversation.WithLogger(c.logger))
	conv := conversation.New(conversation.WithGreeting(conversation.DefaultGreeting))

	if isTerminal(in) {
		c.logger.Debug("starting chat session", "relay_target", c.relayTarget)
		return runTUI(ctx, client, conv)
	}

	if err := cliui.Step(out, "Connecting to "+c.relayTarget, func() error {
		return client.Ping(ctx)
	}); err != nil {
		c.logger.Warn("relay unreachable", "relay_target", c.relayTarget, "error", err)
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(
			fmt.Sprintf("No relay answered at %s. Start one with 'devcoach serve' or pass --relay-target.", c.relayTarget)))
	}
	fmt.Fprintln(out)

	return runLines(ctx, in, out, client, conv)
}

func (c *chatCommander) newLogger() (func(), error) {
	if c.logFile == "" {
		c.logger = logger.Nop()
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	c.logger = logger.New(logger.WithWriter(f), logger.WithDebug(c.debug))
	return func() { _ = f.Close() }, nil
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runLines drives a conversation from line-oriented input. Each answer is
// printed fragment by fragment as the relay streams it.
func runLines(ctx context.Context, in io.Reader, out io.Writer, client *conversation.Client, conv *conversation.Conversation) error {
	conv.OnChange(func(ev conversation.Event) {
		switch ev.Kind {
		case conversation.EventFragment:
			fmt.Fprint(out, ev.Fragment)
		case conversation.EventFailed:
			fmt.Fprint(out, conversation.ErrorMessage)
		}
	})

	for _, msg := range conv.Messages() {
		if msg.Role == llm.RoleAssistant {
			fmt.Fprintf(out, "%s%s\n\n", assistantPrompt, msg.Content)
		}
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case exitCommand:
			fmt.Fprintln(out)
			return nil
		case clearCommand:
			conv.Clear()
			fmt.Fprintf(out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		}

		conv.SetInput(input)
		fmt.Fprint(out, assistantPrompt)
		if err := client.Send(ctx, conv); err != nil && !errors.Is(err, conversation.ErrEmptyInput) {
			return fmt.Errorf("sending message: %w", err)
		}
		fmt.Fprint(out, "\n\n")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}
