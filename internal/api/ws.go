package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/pkg/protocol"
)

const (
	// wsPingInterval is how often the gateway sends WebSocket ping frames.
	wsPingInterval = 30 * time.Second
	// wsPongWait is the maximum time to wait for a pong from the peer.
	wsPongWait = 60 * time.Second
	// wsWriteWait bounds a single frame write.
	wsWriteWait = 10 * time.Second
)

// makeUpgrader creates a WebSocket upgrader with origin checking.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// wsConn serializes writes to a connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(typ, id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := protocol.Envelope{Type: typ, ID: id, Timestamp: time.Now(), Payload: data}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(env)
}

// startKeepalive sets a read deadline refreshed by pongs and pings the peer
// periodically. The returned function stops the pinger.
func (c *wsConn) startKeepalive() (cancel func()) {
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
				c.mu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

// handleChatWS serves chat over a WebSocket. Each chat.message frame is
// handled like a POST /api/chat request; the identity attached by the gate
// at upgrade time is used when a frame carries no employeeId.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFrom(r.Context())
	remote := clientIP(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("chat websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(s.maxBodyBytes)
	c := &wsConn{conn: conn}
	stop := c.startKeepalive()
	defer stop()

	connID := uuid.New().String()
	s.logger.Info("chat client connected", "conn_id", connID, "remote", remote)
	defer s.logger.Info("chat client disconnected", "conn_id", connID)

	// The connection context ends when the handler returns.
	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("chat client read error", "conn_id", connID, "error", err)
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			_ = c.send(protocol.TypeError, "", protocol.ErrorPayload{Code: "bad_frame", Message: "invalid frame"})
			continue
		}

		switch env.Type {
		case protocol.TypePing:
			_ = c.send(protocol.TypePong, env.ID, struct{}{})
		case protocol.TypeChatMessage:
			var req protocol.ChatRequest
			if err := json.Unmarshal(env.Payload, &req); err != nil {
				_ = c.send(protocol.TypeError, env.ID, protocol.ErrorPayload{Code: "bad_payload", Message: "invalid chat payload"})
				continue
			}
			if !s.chatRL.allow(remote) {
				_ = c.send(protocol.TypeError, env.ID, protocol.ErrorPayload{Code: "rate_limited", Message: "rate limit exceeded"})
				continue
			}
			_, reply := s.processChat(ctx, req, caller, remote)
			if err := c.send(protocol.TypeChatReply, env.ID, reply); err != nil {
				s.logger.Debug("chat client write error", "conn_id", connID, "error", err)
				return
			}
		default:
			_ = c.send(protocol.TypeError, env.ID, protocol.ErrorPayload{Code: "unknown_type", Message: "unknown frame type"})
		}
	}
}
