// Package chat is a terminal chat client for the gateway's /ws/chat endpoint.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tendawaks/dialogate/pkg/protocol"
)

// Client is a WebSocket connection to the gateway.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
	seq  atomic.Uint64
}

// WSURL turns a gateway base URL such as "http://localhost:8080" into the
// chat WebSocket URL.
func WSURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/chat"
	return u.String(), nil
}

// Dial connects to the gateway at base, authenticating with a bearer token
// when one is given.
func Dial(ctx context.Context, base, token string) (*Client, error) {
	wsURL, err := WSURL(base)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s", wsURL, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Client{conn: conn}, nil
}

// Send writes a chat.message frame and returns its frame ID.
func (c *Client) Send(req protocol.ChatRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("m-%d", c.seq.Add(1))
	env := protocol.Envelope{
		Type:      protocol.TypeChatMessage,
		ID:        id,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(env); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return id, nil
}

// Next blocks for the next frame from the gateway.
func (c *Client) Next() (protocol.Envelope, error) {
	var env protocol.Envelope
	err := c.conn.ReadJSON(&env)
	return env, err
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.conn.Close()
}
