package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/tendawaks/dialogate/pkg/protocol"
)

// Options configure a chat session.
type Options struct {
	ServerURL    string
	Token        string
	EmployeeID   string
	LanguageCode string
	SessionID    string // generated when empty
}

// Run connects to the gateway and runs the chat TUI until the user quits.
func Run(ctx context.Context, opts Options) error {
	client, err := Dial(ctx, opts.ServerURL, opts.Token)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	p := tea.NewProgram(
		NewModel(client, sessionID, opts.EmployeeID, opts.LanguageCode),
		tea.WithAltScreen(),
	)
	go forward(client, p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// forward turns gateway frames into model messages until the connection
// closes.
func forward(c *Client, send func(tea.Msg)) {
	for {
		env, err := c.Next()
		if err != nil {
			send(DisconnectedMsg{Err: err})
			return
		}
		if msg := frameMsg(env); msg != nil {
			send(msg)
		}
	}
}

func frameMsg(env protocol.Envelope) tea.Msg {
	switch env.Type {
	case protocol.TypeChatReply:
		var reply protocol.ChatReply
		if err := json.Unmarshal(env.Payload, &reply); err != nil {
			return ErrorMsg{Err: fmt.Errorf("decode reply: %w", err)}
		}
		return ReplyMsg{Reply: reply}
	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.Message == "" {
			return ErrorMsg{Err: errors.New("gateway error")}
		}
		return ErrorMsg{Err: errors.New(p.Message)}
	default:
		return nil
	}
}
