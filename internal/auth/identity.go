// Package auth verifies bearer credentials and carries the resolved caller
// identity through request contexts.
package auth

import (
	"context"
	"errors"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the caller resolved from a verified credential or bound to a
// conversation session.
type Identity struct {
	UserID   string // employee id
	Username string
	Role     string // "admin" or "user"
	OrgID    string
}

// IsZero reports whether no caller is identified.
func (id Identity) IsZero() bool { return id.UserID == "" }

// Verifier validates a bearer token and returns the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
	Name() string
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity attached to ctx, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
