package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tendawaks/dialogate/internal/tui"
	"github.com/tendawaks/dialogate/pkg/protocol"
)

const maxTranscriptLines = 500

// Sender delivers a chat message to the gateway. *Client implements it.
type Sender interface {
	Send(req protocol.ChatRequest) (string, error)
}

// ReplyMsg carries a chat.reply frame.
type ReplyMsg struct {
	Reply protocol.ChatReply
}

// ErrorMsg reports a send failure or an error frame.
type ErrorMsg struct {
	Err error
}

// DisconnectedMsg is sent once the connection is gone.
type DisconnectedMsg struct {
	Err error
}

var (
	keyQuit = key.NewBinding(key.WithKeys("ctrl+c", "esc"))
	keySend = key.NewBinding(key.WithKeys("enter"))
)

// Model is the chat TUI model.
type Model struct {
	sender       Sender
	sessionID    string
	employeeID   string
	languageCode string

	transcript []string
	viewport   viewport.Model
	input      textinput.Model
	spinner    spinner.Model

	pending   int
	connected bool
	width     int
	quitting  bool
}

// NewModel creates a chat model bound to one conversation session.
func NewModel(sender Sender, sessionID, employeeID, languageCode string) Model {
	in := textinput.New()
	in.Placeholder = "Ask about leave, payroll or HR contacts..."
	in.CharLimit = 2000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.Dimmed

	return Model{
		sender:       sender,
		sessionID:    sessionID,
		employeeID:   employeeID,
		languageCode: languageCode,
		viewport:     viewport.New(80, 15),
		input:        in,
		spinner:      sp,
		connected:    true,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-7, 3)
		m.input.Width = max(msg.Width-6, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keySend):
			return m.submit()
		}

	case ReplyMsg:
		m.done()
		if msg.Reply.SessionID != "" {
			m.sessionID = msg.Reply.SessionID
		}
		if msg.Reply.Success {
			m.appendLine(tui.BotLabel.Render("hr") + "  " + tui.Body.Render(msg.Reply.Reply))
		} else {
			m.appendLine(tui.BotLabel.Render("hr") + "  " + tui.ErrorStyle.Render(msg.Reply.Reply))
		}
		return m, nil

	case ErrorMsg:
		m.done()
		m.appendLine(tui.ErrorStyle.Render("error: " + msg.Err.Error()))
		return m, nil

	case DisconnectedMsg:
		m.pending = 0
		m.connected = false
		if msg.Err != nil {
			m.appendLine(tui.ErrorStyle.Render("disconnected: " + msg.Err.Error()))
		}
		return m, nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inCmd, vpCmd tea.Cmd
	m.input, inCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(inCmd, vpCmd)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	switch {
	case text == "":
		return m, nil
	case text == "/quit":
		m.quitting = true
		return m, tea.Quit
	case !m.connected:
		m.appendLine(tui.ErrorStyle.Render("not connected"))
		return m, nil
	}

	m.appendLine(tui.UserLabel.Render("you") + " " + text)
	m.pending++

	req := protocol.ChatRequest{
		Message:      text,
		SessionID:    m.sessionID,
		EmployeeID:   m.employeeID,
		LanguageCode: m.languageCode,
	}
	sender := m.sender
	send := func() tea.Msg {
		if _, err := sender.Send(req); err != nil {
			return ErrorMsg{Err: err}
		}
		return nil
	}
	if m.pending == 1 {
		return m, tea.Batch(send, m.spinner.Tick)
	}
	return m, send
}

func (m *Model) done() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m *Model) appendLine(line string) {
	m.transcript = append(m.transcript, line)
	if len(m.transcript) > maxTranscriptLines {
		m.transcript = m.transcript[len(m.transcript)-maxTranscriptLines:]
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

// Transcript returns the rendered conversation lines.
func (m Model) Transcript() []string {
	return m.transcript
}

// SessionID returns the conversation session key.
func (m Model) SessionID() string {
	return m.sessionID
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(tui.Title.Render("dialogate"))
	b.WriteString("  ")
	b.WriteString(tui.StatusText(m.connected))
	b.WriteString("  ")
	b.WriteString(tui.Dimmed.Render("session " + m.sessionID))
	b.WriteString("\n")

	border := tui.Border
	if m.width > 0 {
		border = border.Width(m.width - 2)
	}
	b.WriteString(border.Render(m.viewport.View()))
	b.WriteString("\n")

	if m.pending > 0 {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(tui.Help.Render("enter send • esc quit • /quit"))
	return b.String()
}
