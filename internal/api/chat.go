package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/intent"
	"github.com/tendawaks/dialogate/internal/nlu"
	"github.com/tendawaks/dialogate/internal/store"
	"github.com/tendawaks/dialogate/pkg/protocol"
)

const (
	msgChatError      = "Sorry, I encountered an error processing your request"
	errMessageMissing = "message is required"
	errChatFailed     = "failed to process message"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req protocol.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ChatReply{
			Success:   false,
			Reply:     msgChatError,
			SessionID: req.SessionID,
			Error:     "invalid request body",
		})
		return
	}

	status, reply := s.processChat(r.Context(), req, auth.IdentityFrom(r.Context()), clientIP(r))
	writeJSON(w, status, reply)
}

// processChat binds the session to the caller when an identity is known,
// forwards the turn to the NLU engine and builds the reply. It returns the
// HTTP status the reply should carry.
func (s *Server) processChat(ctx context.Context, req protocol.ChatRequest, caller *auth.Identity, remote string) (int, protocol.ChatReply) {
	if strings.TrimSpace(req.Message) == "" && strings.TrimSpace(req.Event) == "" {
		return http.StatusBadRequest, protocol.ChatReply{
			Success:   false,
			Reply:     msgChatError,
			SessionID: req.SessionID,
			Error:     errMessageMissing,
		}
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	// A verified caller always binds as itself; employeeId is only a hint
	// for unauthenticated turns.
	employeeID := req.EmployeeID
	var bound *auth.Identity
	switch {
	case caller != nil:
		if employeeID != "" && employeeID != caller.UserID {
			s.logger.Warn("ignoring employeeId that differs from caller",
				"session_id", sessionID, "caller", caller.UserID, "employee_id", employeeID)
		}
		bound = caller
		employeeID = caller.UserID
	case employeeID != "":
		bound = &auth.Identity{UserID: employeeID}
	}
	if bound != nil {
		if err := s.deps.Sessions.Save(ctx, sessionID, *bound); err != nil {
			s.logger.Warn("failed to bind session", "session_id", sessionID, "error", err)
		} else {
			s.deps.Auditor.Record(ctx, store.AuditEvent{
				Action:     store.ActionSessionBound,
				UserID:     bound.UserID,
				SessionID:  sessionID,
				RemoteAddr: remote,
			})
		}
	}

	s.logger.Info("processing chat request", "session_id", sessionID, "event", req.Event)

	res, err := s.deps.NLU.DetectIntent(ctx, nlu.Query{
		SessionID:    sessionID,
		Text:         req.Message,
		Event:        req.Event,
		LanguageCode: req.LanguageCode,
	})
	if err != nil {
		s.logger.Warn("detect intent failed", "session_id", sessionID, "error", err)
		return http.StatusOK, protocol.ChatReply{
			Success:    false,
			Reply:      msgChatError,
			SessionID:  sessionID,
			EmployeeID: employeeID,
			Error:      errChatFailed,
		}
	}

	return http.StatusOK, protocol.ChatReply{
		Success:    true,
		Reply:      res.FulfillmentText,
		SessionID:  sessionID,
		EmployeeID: employeeID,
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req protocol.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := req.SessionKey()
	name := req.QueryResult.Intent.DisplayName
	reply := s.deps.Dispatcher.Dispatch(r.Context(), intentRequest(req, key))

	s.logger.Info("webhook dispatched", "session_id", key, "intent", name)
	s.deps.Auditor.Record(r.Context(), store.AuditEvent{
		Action:     store.ActionWebhookDispatched,
		SessionID:  key,
		Intent:     name,
		RemoteAddr: clientIP(r),
		Detail:     json.RawMessage(fmt.Sprintf(`{"handled":%t}`, s.deps.Dispatcher.Has(name))),
	})

	writeJSON(w, http.StatusOK, protocol.WebhookResponse{FulfillmentText: reply})
}

func intentRequest(req protocol.WebhookRequest, sessionKey string) intent.Request {
	return intent.Request{
		Intent:    req.QueryResult.Intent.DisplayName,
		Params:    req.QueryResult.StringParams(),
		Text:      req.QueryResult.QueryText,
		SessionID: sessionKey,
	}
}
