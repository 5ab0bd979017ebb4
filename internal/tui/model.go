// Package tui is the terminal rendition of the chat widget: the same
// session/typing core the web widget uses, rendered as a Bubble Tea
// program.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clubforge/clubchat/internal/model/chat"
	"github.com/clubforge/clubchat/internal/session"
	"github.com/clubforge/clubchat/internal/typing"
	"github.com/clubforge/clubchat/internal/view"
)

var (
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

type frameMsg struct {
	frame view.Frame
	ok    bool
}

type sendResultMsg struct {
	frames <-chan view.Frame
	err    error
}

// Model drives one conversation in the terminal.
type Model struct {
	conversation *view.View
	ctx          context.Context

	input   textinput.Model
	spin    spinner.Model
	frames  <-chan view.Frame
	current view.Frame
	sending bool
	width   int
}

// New seeds the conversation and prepares the input widgets.
func New(ctx context.Context, conversation *view.View) Model {
	conversation.Session().Initialize()

	input := textinput.New()
	input.Placeholder = "Ask the club assistant..."
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		conversation: conversation,
		ctx:          ctx,
		input:        input,
		spin:         spin,
		current:      firstFrame(conversation, ctx),
		width:        80,
	}
}

func firstFrame(conversation *view.View, ctx context.Context) view.Frame {
	frames := conversation.Reveal(ctx)
	var frame view.Frame
	for f := range frames {
		frame = f
	}
	return frame
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func waitForFrame(frames <-chan view.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		return frameMsg{frame: f, ok: ok}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.conversation.Stop()
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case sendResultMsg:
		m.sending = false
		if msg.err != nil {
			// Blank input and double-sends stay silent.
			return m, nil
		}
		m.frames = msg.frames
		return m, waitForFrame(m.frames)

	case frameMsg:
		if !msg.ok {
			m.frames = nil
			return m, nil
		}
		m.current = msg.frame
		return m, waitForFrame(m.frames)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.input.Reset()
	m.sending = true

	conversation := m.conversation
	ctx := m.ctx
	return m, func() tea.Msg {
		frames, err := conversation.Send(ctx, text)
		if err != nil && !errors.Is(err, session.ErrEmptyMessage) && !errors.Is(err, session.ErrBusy) {
			return sendResultMsg{err: err}
		}
		return sendResultMsg{frames: frames, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	for _, turn := range m.current.Log {
		if turn.ID == m.current.AnimatingID {
			b.WriteString(m.renderReveal())
			continue
		}
		b.WriteString(renderTurn(turn))
	}

	if m.current.AnimatingID != "" && m.current.Reveal.Phase == typing.PhaseThinking {
		b.WriteString(botStyle.Render("assistant") + " " + m.spin.View() + statusStyle.Render(" composing...") + "\n")
	}

	if len(m.current.QuickReplies) > 0 {
		b.WriteString("\n")
		for _, reply := range m.current.QuickReplies {
			b.WriteString(hintStyle.Render("· "+reply) + "\n")
		}
	}

	b.WriteString("\n")
	if m.sending || m.current.Pending {
		b.WriteString(m.spin.View() + statusStyle.Render(" sending...") + "\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n" + statusStyle.Render("enter to send · esc to quit"))
	return b.String()
}

// renderReveal shows the animating turn at its current prefix, with the
// blinking cursor block while the reveal is live.
func (m Model) renderReveal() string {
	if m.current.Reveal.Phase == typing.PhaseThinking {
		return ""
	}
	text := m.current.Reveal.Text
	if m.current.Reveal.Cursor {
		text += "▌"
	}
	return botStyle.Render("assistant") + "  " + text + "\n"
}

func renderTurn(turn chat.Message) string {
	switch turn.Author {
	case chat.AuthorUser:
		line := userStyle.Render("you") + "  " + turn.Content
		switch turn.Status {
		case chat.StatusSending:
			line += statusStyle.Render("  …")
		case chat.StatusFailed:
			line += failedStyle.Render("  ✗ not delivered")
		}
		return line + "\n"
	default:
		return botStyle.Render("assistant") + "  " + turn.Content + "\n"
	}
}
