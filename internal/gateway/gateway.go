// Package gateway is the orchestrator that ties all gateway components together.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendawaks/dialogate/internal/admission"
	"github.com/tendawaks/dialogate/internal/api"
	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/backend"
	"github.com/tendawaks/dialogate/internal/config"
	"github.com/tendawaks/dialogate/internal/intent"
	"github.com/tendawaks/dialogate/internal/llm"
	"github.com/tendawaks/dialogate/internal/nlu"
	"github.com/tendawaks/dialogate/internal/session"
	"github.com/tendawaks/dialogate/internal/store"
)

const (
	purgeInterval   = time.Hour
	shutdownTimeout = 30 * time.Second
)

// Gateway is the main gateway process.
type Gateway struct {
	cfg      *config.Config
	store    store.Store
	sessions session.Store
	api      *api.Server
	logger   *slog.Logger
}

// New creates a gateway from configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	db, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	auditor := store.NewAuditor(db, logger)

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init verifier: %w", err)
	}

	sessions, err := session.New(ctx, cfg.Session, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init session store: %w", err)
	}

	var completer intent.Completer
	if c := llm.New(cfg.LLM, logger); c.Enabled() {
		completer = c
	} else {
		logger.Info("llm disabled, free-form questions will get a fallback reply")
	}
	dispatcher := intent.NewHRDispatcher(logger, sessions, backend.New(cfg.Backend, logger), completer)

	gate := admission.NewDefault(logger,
		admission.NewPathSet(cfg.Server.PublicPaths),
		verifier,
		admission.WithRejectHook(rejectAuditor(auditor)),
	)

	apiSrv := api.NewServer(cfg, api.Deps{
		Gate:       gate,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		NLU:        nlu.New(cfg.NLU, logger),
		Store:      db,
		Auditor:    auditor,
	}, logger)

	g := &Gateway{
		cfg:      cfg,
		store:    db,
		sessions: sessions,
		api:      apiSrv,
		logger:   logger.With("component", "gateway"),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			g.logger.Warn("CORS allowed_origins contains wildcard '*', restrict to specific origins in production")
			break
		}
	}
	if cfg.Auth.WebhookUsername == "" {
		g.logger.Warn("webhook basic auth not configured, anyone can call /api/webhook")
	}
	g.logger.Info("gateway initialized",
		"verifier", verifier.Name(),
		"session_backend", cfg.Session.Backend,
		"storage", cfg.Storage.Driver)

	return g, nil
}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.api.Handler()
}

// Run starts the HTTP server and background tasks and blocks until ctx is
// canceled or the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              g.cfg.Server.Addr,
		Handler:           g.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.sessions.Start()
	g.api.StartBackgroundTasks(ctx)
	if g.cfg.Storage.Retention.Duration > 0 {
		go g.runRetentionPurger(ctx, g.cfg.Storage.Retention.Duration)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", g.cfg.Server.Addr)
		if g.cfg.Server.TLSCert != "" && g.cfg.Server.TLSKey != "" {
			errCh <- srv.ListenAndServeTLS(g.cfg.Server.TLSCert, g.cfg.Server.TLSKey)
		} else {
			g.logger.Warn("TLS not configured, running without encryption (development only)")
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("shutting down gateway gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		} else {
			g.logger.Info("http server stopped gracefully")
		}

		g.close()
		g.logger.Info("shutdown complete")
		return ctx.Err()

	case err := <-errCh:
		g.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (g *Gateway) close() {
	g.sessions.Shutdown()
	_ = g.store.Close()
}

func (g *Gateway) runRetentionPurger(ctx context.Context, retention time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.purge(ctx, time.Now().Add(-retention))
		}
	}
}

func (g *Gateway) purge(ctx context.Context, cutoff time.Time) {
	if n, err := g.store.PurgeOldAuditEvents(ctx, cutoff); err != nil {
		g.logger.Warn("retention purge: audit events failed", "error", err)
	} else if n > 0 {
		g.logger.Info("retention purge: deleted old audit events", "count", n)
	}
}

// rejectAuditor records every admission rejection.
func rejectAuditor(a *store.Auditor) admission.RejectHook {
	return func(r *http.Request, stage string, d admission.Decision) {
		detail := fmt.Sprintf(`{"stage":%q,"status":%d,"path":%q}`, stage, d.Status, r.URL.Path)
		a.Record(r.Context(), store.AuditEvent{
			Action:     store.ActionAdmissionRejected,
			RemoteAddr: r.RemoteAddr,
			Detail:     json.RawMessage(detail),
		})
	}
}
