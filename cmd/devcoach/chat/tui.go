package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/devcoach/pkg/cliui"
	"github.com/papercomputeco/devcoach/pkg/conversation"
	"github.com/papercomputeco/devcoach/pkg/llm"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

const (
	inputPlaceholder = "Ask Dev Coach anything..."
	busyPlaceholder  = "Dev Coach is answering..."

	// title + input box (with border) + help line
	chromeHeight = 6
)

type chatTheme struct {
	glamourStyle string
	title        lipgloss.Style
	user         lipgloss.Style
	assistant    lipgloss.Style
	muted        lipgloss.Style
	border       lipgloss.Style
}

var (
	darkTheme = chatTheme{
		glamourStyle: "dark",
		title:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		user:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111")),
		assistant:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		border:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("237")),
	}
	lightTheme = chatTheme{
		glamourStyle: "light",
		title:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("130")),
		user:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
		assistant:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("94")),
		muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		border:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("250")),
	}
)

type chatKeyMap struct {
	Send  key.Binding
	Clear key.Binding
	Theme key.Binding
	Quit  key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Clear, k.Theme, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultChatKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Clear: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		Theme: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("ctrl+c", "quit")),
	}
}

// conversationEventMsg carries a change made by the send goroutine.
type conversationEventMsg conversation.Event

type sendDoneMsg struct {
	err error
}

type chatModel struct {
	ctx    context.Context
	client *conversation.Client
	conv   *conversation.Conversation
	events <-chan conversation.Event

	input    textinput.Model
	viewport viewport.Model
	keys     chatKeyMap
	help     help.Model

	theme   chatTheme
	dark    bool
	sending bool
	width   int
	height  int

	// rendered caches glamour output per theme, width and content.
	rendered map[string]string
}

func runTUI(ctx context.Context, client *conversation.Client, conv *conversation.Conversation) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan conversation.Event, 64)
	conv.OnChange(forwardSendEvents(ctx, events))

	model := newChatModel(ctx, client, conv, events)
	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
		bubbletea.WithMouseCellMotion(),
	)

	_, err := program.Run()
	if err != nil && !errors.Is(err, bubbletea.ErrProgramKilled) {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}

// forwardSendEvents returns an observer that hands the send goroutine's
// changes to the UI loop. Clear and input edits happen inside Update itself
// and are not forwarded, so the UI goroutine never blocks on its own channel.
func forwardSendEvents(ctx context.Context, events chan<- conversation.Event) func(conversation.Event) {
	return func(ev conversation.Event) {
		switch ev.Kind {
		case conversation.EventCleared, conversation.EventInput:
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
}

func newChatModel(ctx context.Context, client *conversation.Client, conv *conversation.Conversation, events <-chan conversation.Event) chatModel {
	input := textinput.New()
	input.Placeholder = inputPlaceholder
	input.Prompt = "> "
	input.Focus()

	vp := viewport.New(80, 20)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Down:     key.NewBinding(key.WithKeys("down")),
		Up:       key.NewBinding(key.WithKeys("up")),
	}

	m := chatModel{
		ctx:      ctx,
		client:   client,
		conv:     conv,
		events:   events,
		input:    input,
		viewport: vp,
		keys:     defaultChatKeyMap(),
		help:     help.New(),
		theme:    darkTheme,
		dark:     true,
		width:    80,
		height:   20 + chromeHeight,
		rendered: make(map[string]string),
	}
	m.refresh()
	return m
}

func (m chatModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(textinput.Blink, m.waitForEvent())
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-6, 10)
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case bubbletea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.conv.Clear()
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.Theme):
			m.dark = !m.dark
			m.theme = lightTheme
			if m.dark {
				m.theme = darkTheme
			}
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.Send):
			if m.sending || strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.conv.SetInput(m.input.Value())
			m.input.Reset()
			m.input.Placeholder = busyPlaceholder
			m.input.Blur()
			m.sending = true
			return m, m.send()
		}

		if m.sending {
			var cmd bubbletea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var inputCmd, viewportCmd bubbletea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		m.viewport, viewportCmd = m.viewport.Update(msg)
		return m, bubbletea.Batch(inputCmd, viewportCmd)

	case conversationEventMsg:
		m.refresh()
		return m, m.waitForEvent()

	case sendDoneMsg:
		m.sending = false
		m.input.Placeholder = inputPlaceholder
		m.refresh()
		return m, m.input.Focus()
	}

	var cmd bubbletea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m chatModel) View() string {
	title := m.theme.title.Render("Dev Coach")
	if m.conv.Busy() {
		title += " " + m.theme.muted.Render(m.conv.State().String())
	}

	box := m.theme.border.Width(max(m.width-2, 10)).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		box,
		m.theme.muted.Render(m.help.View(m.keys)),
	)
}

// send runs one send cycle off the UI goroutine.
func (m chatModel) send() bubbletea.Cmd {
	ctx, client, conv := m.ctx, m.client, m.conv
	return func() bubbletea.Msg {
		return sendDoneMsg{err: client.Send(ctx, conv)}
	}
}

func (m chatModel) waitForEvent() bubbletea.Cmd {
	ctx, events := m.ctx, m.events
	return func() bubbletea.Msg {
		select {
		case ev := <-events:
			return conversationEventMsg(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

// refresh re-renders the transcript into the viewport and keeps the newest
// text in view.
func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *chatModel) transcript() string {
	msgs := m.conv.Messages()
	if len(msgs) == 0 {
		return m.theme.muted.Render("No messages yet. Say hello!")
	}

	// The last assistant message is still being written while a send is in
	// flight. It is shown as plain text until it settles.
	live := -1
	if m.conv.Busy() {
		live = len(msgs) - 1
	}

	wrap := lipgloss.NewStyle().Width(max(m.width-2, 10))

	var b strings.Builder
	for i, msg := range msgs {
		switch msg.Role {
		case llm.RoleUser:
			b.WriteString(m.theme.user.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(msg.Content))
		case llm.RoleAssistant:
			b.WriteString(m.theme.assistant.Render("Dev Coach"))
			b.WriteString("\n")
			switch {
			case i == live && msg.Content == "":
				b.WriteString(m.theme.muted.Render("..."))
			case i == live:
				b.WriteString(wrap.Render(msg.Content))
			default:
				b.WriteString(m.markdown(msg.Content))
			}
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *chatModel) markdown(content string) string {
	width := max(m.width-2, 10)
	cacheKey := fmt.Sprintf("%s:%d:%s", m.theme.glamourStyle, width, content)
	if out, ok := m.rendered[cacheKey]; ok {
		return out
	}

	out, err := cliui.RenderMarkdownStyled(content, width, m.theme.glamourStyle)
	if err != nil {
		out = content
	}
	out = strings.Trim(out, "\n")
	m.rendered[cacheKey] = out
	return out
}
