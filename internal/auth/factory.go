package auth

import (
	"context"
	"fmt"

	"github.com/tendawaks/dialogate/internal/config"
)

// NewVerifier creates a Verifier based on configuration.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Provider {
	case "", "builtin":
		return NewBuiltinVerifier(cfg.JWTSecret, cfg.JWTExpiry.Duration, cfg.Issuer), nil
	case "jwks":
		return NewJWKSVerifier(ctx, cfg.JWKSURL, cfg.Issuer, cfg.Audience)
	default:
		return nil, fmt.Errorf("unknown auth provider: %q", cfg.Provider)
	}
}
