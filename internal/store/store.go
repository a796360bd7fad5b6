// Package store persists the gateway's audit trail.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tendawaks/dialogate/internal/config"
)

// Audit actions.
const (
	ActionAdmissionRejected = "admission.rejected"
	ActionSessionBound      = "session.bound"
	ActionWebhookDispatched = "webhook.dispatched"
)

// Store defines the audit persistence interface.
type Store interface {
	LogAuditEvent(ctx context.Context, event *AuditEvent) error
	ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
	PurgeOldAuditEvents(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// AuditEvent is a log entry for audit purposes.
type AuditEvent struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	UserID     string          `json:"user_id,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	Intent     string          `json:"intent,omitempty"`
	RemoteAddr string          `json:"remote_addr,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditFilter specifies criteria for filtering audit events.
type AuditFilter struct {
	Action    string // prefix match
	UserID    string
	SessionID string
	Since     time.Time
	Limit     int // default 50
	Offset    int
}

// New opens the store selected by cfg.Driver.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// listQuery builds the filtered SELECT. ph renders the n-th placeholder.
func listQuery(filter AuditFilter, ph func(n int) string) (string, []any) {
	query := `SELECT id, action, user_id, session_id, intent, remote_addr, detail, created_at
	          FROM audit_events WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, ph(len(args)))
	}

	if filter.Action != "" {
		add(" AND action LIKE %s", filter.Action+"%")
	}
	if filter.UserID != "" {
		add(" AND user_id = %s", filter.UserID)
	}
	if filter.SessionID != "" {
		add(" AND session_id = %s", filter.SessionID)
	}
	if !filter.Since.IsZero() {
		add(" AND created_at >= %s", filter.Since)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	add(" LIMIT %s", limit)

	if filter.Offset > 0 {
		add(" OFFSET %s", filter.Offset)
	}
	return query, args
}

func scanAuditEvents(rows *sql.Rows) ([]AuditEvent, error) {
	defer func() { _ = rows.Close() }()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var detail string
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.SessionID, &e.Intent, &e.RemoteAddr, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		if detail != "" {
			e.Detail = json.RawMessage(detail)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func detailString(d json.RawMessage) string {
	if d == nil {
		return ""
	}
	return string(d)
}
