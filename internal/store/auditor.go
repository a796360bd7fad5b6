package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Auditor records audit events on a best-effort basis: failures are logged
// and never reach the request path. A nil *Auditor discards events.
type Auditor struct {
	store  Store
	logger *slog.Logger
}

// NewAuditor creates an Auditor writing to s.
func NewAuditor(s Store, logger *slog.Logger) *Auditor {
	return &Auditor{store: s, logger: logger.With("component", "audit")}
}

// Record stores e, filling in ID and CreatedAt when empty.
func (a *Auditor) Record(ctx context.Context, e AuditEvent) {
	if a == nil || a.store == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	// Detach from request cancellation so a client hang-up does not drop the event.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.store.LogAuditEvent(ctx, &e); err != nil {
		a.logger.Warn("failed to record audit event", "action", e.Action, "error", err)
	}
}
