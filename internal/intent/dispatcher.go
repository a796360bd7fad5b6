// Package intent routes matched NLU intents to the handlers that answer them.
package intent

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/session"
)

// Request is one fulfillment call.
type Request struct {
	Intent    string
	Params    map[string]string
	Identity  *auth.Identity // nil when the caller is unknown
	Text      string         // raw user utterance
	SessionID string
}

// Param returns the named parameter or "".
func (r Request) Param(name string) string { return r.Params[name] }

// HandlerFunc produces the reply for a request.
type HandlerFunc func(ctx context.Context, req Request) string

// Handler is an entry in the dispatch table.
type Handler struct {
	// RequiresIdentity makes the dispatcher answer MsgIdentityRequired
	// instead of calling Fn when no identity is resolved.
	RequiresIdentity bool
	Fn               HandlerFunc
}

// IdentityResolver looks up the identity bound to a session.
type IdentityResolver interface {
	Get(ctx context.Context, key string) (auth.Identity, error)
}

// Dispatcher maps intent names to handlers. Its table is fixed at
// construction and read-only afterwards.
type Dispatcher struct {
	handlers map[string]Handler
	fallback Handler
	resolver IdentityResolver
	logger   *slog.Logger
}

// NewDispatcher builds a Dispatcher over a copy of handlers. fallback
// answers unknown intents; a nil fallback.Fn answers MsgDefault.
func NewDispatcher(logger *slog.Logger, resolver IdentityResolver, handlers map[string]Handler, fallback Handler) *Dispatcher {
	table := make(map[string]Handler, len(handlers))
	for name, h := range handlers {
		table[name] = h
	}
	if fallback.Fn == nil {
		fallback = Handler{Fn: func(context.Context, Request) string { return MsgDefault }}
	}
	return &Dispatcher{
		handlers: table,
		fallback: fallback,
		resolver: resolver,
		logger:   logger.With("component", "intent"),
	}
}

// Has reports whether name has a dedicated handler.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

// Dispatch answers req. It always returns a user-facing reply; handler
// panics are recovered and answered with MsgInternalError.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (reply string) {
	h, ok := d.handlers[req.Intent]
	if !ok {
		d.logger.Info("unhandled intent", "intent", req.Intent, "session_id", req.SessionID)
		h = d.fallback
	}

	if h.RequiresIdentity && req.Identity == nil {
		req.Identity = d.resolve(ctx, req.SessionID)
		if req.Identity == nil {
			d.logger.Warn("no identity bound to session",
				"intent", req.Intent, "session_id", req.SessionID)
			return MsgIdentityRequired
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("intent handler panicked",
				"intent", req.Intent, "panic", rec, "stack", string(debug.Stack()))
			reply = MsgInternalError
		}
	}()
	return h.Fn(ctx, req)
}

func (d *Dispatcher) resolve(ctx context.Context, sessionID string) *auth.Identity {
	if d.resolver == nil {
		return nil
	}
	id, err := d.resolver.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			d.logger.Warn("session lookup failed", "session_id", sessionID, "error", err)
		}
		return nil
	}
	if id.IsZero() {
		return nil
	}
	return &id
}
