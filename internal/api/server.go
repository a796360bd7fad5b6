// Package api provides the gateway's HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/tendawaks/dialogate/internal/admission"
	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/config"
	"github.com/tendawaks/dialogate/internal/intent"
	"github.com/tendawaks/dialogate/internal/nlu"
	"github.com/tendawaks/dialogate/internal/session"
	"github.com/tendawaks/dialogate/internal/store"
)

// Detector sends a user turn to the NLU engine.
type Detector interface {
	DetectIntent(ctx context.Context, q nlu.Query) (*nlu.Result, error)
}

// Deps are the collaborators the Server routes requests to.
type Deps struct {
	Gate       *admission.Gate
	Sessions   session.Store
	Dispatcher *intent.Dispatcher
	NLU        Detector
	Store      store.Store
	Auditor    *store.Auditor
}

// Server is the HTTP API server.
type Server struct {
	deps         Deps
	logger       *slog.Logger
	mux          *chi.Mux
	upgrader     websocket.Upgrader
	startTime    time.Time
	maxBodyBytes int64
	chatRL       *rateLimiter
}

// NewServer creates a new API server. Every route sits behind deps.Gate.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	srv := &Server{
		deps:         deps,
		logger:       logger.With("component", "api"),
		upgrader:     makeUpgrader(cfg.Server.AllowedOrigins),
		startTime:    time.Now(),
		maxBodyBytes: cfg.Server.MaxBodyBytes,
		chatRL:       newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.RealIP)
	mux.Use(securityHeadersMiddleware)
	mux.Use(makeCORSMiddleware(cfg.Server.AllowedOrigins))
	mux.Use(deps.Gate.Middleware)

	mux.Get("/healthz", srv.handleHealthz)
	mux.Get("/readyz", srv.handleReadyz)

	mux.With(ipRateLimitMiddleware(srv.chatRL)).Post("/api/chat", srv.handleChat)
	mux.With(ipRateLimitMiddleware(srv.chatRL)).Get("/ws/chat", srv.handleChatWS)

	webhook := mux.With()
	if cfg.Auth.WebhookUsername != "" {
		webhook = mux.With(webhookAuthMiddleware(cfg.Auth.WebhookUsername, cfg.Auth.WebhookPasswordHash))
	}
	webhook.Post("/api/webhook", srv.handleWebhook)

	mux.Get("/api/me", srv.handleGetMe)

	mux.Group(func(r chi.Router) {
		r.Use(adminMiddleware)
		r.Get("/api/admin/audit", srv.handleAdminListAuditEvents)
	})

	srv.mux = mux
	return srv
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartBackgroundTasks starts periodic cleanup of rate limit buckets.
func (s *Server) StartBackgroundTasks(ctx context.Context) {
	s.chatRL.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":       identity.UserID,
		"username": identity.Username,
		"role":     identity.Role,
		"org_id":   identity.OrgID,
	})
}

func (s *Server) handleAdminListAuditEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AuditFilter{
		Action:    q.Get("action"),
		UserID:    q.Get("user_id"),
		SessionID: q.Get("session_id"),
		Limit:     50,
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = min(n, 500)
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}

	events, err := s.deps.Store.ListAuditEvents(r.Context(), filter)
	if err != nil {
		s.logger.Error("list audit events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	if events == nil {
		events = []store.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
