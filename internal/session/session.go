// Package session binds conversation session keys to caller identities.
//
// The NLU engine calls the fulfillment webhook without the caller's bearer
// credential, so the gateway remembers which identity spoke on which session
// when the chat message passes through, and looks it up again when the
// webhook arrives.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/config"
)

// ErrNotFound is returned by Get when no live binding exists for a key.
var ErrNotFound = errors.New("session not found")

// Store is a concurrent session key → identity map with time-based expiry.
// A later Save for the same key overwrites the earlier binding.
type Store interface {
	Save(ctx context.Context, key string, id auth.Identity) error
	Get(ctx context.Context, key string) (auth.Identity, error)
	// Start begins background expiry, if the backend needs it.
	Start()
	// Shutdown stops background work and releases resources. Bindings are kept.
	Shutdown()
}

// New creates the Store selected by cfg.Backend.
func New(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (Store, error) {
	logger = logger.With("component", "session", "backend", cfg.Backend)
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.TTL.Duration, cfg.ReapInterval.Duration, cfg.ReapDelay.Duration, logger), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, cfg.TTL.Duration, logger)
	default:
		return nil, fmt.Errorf("unknown session backend: %q", cfg.Backend)
	}
}
