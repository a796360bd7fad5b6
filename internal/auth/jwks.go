package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier validates tokens issued by an external identity provider,
// fetching signing keys from its JWKS endpoint.
type JWKSVerifier struct {
	issuer   string
	audience string
	jwks     keyfunc.Keyfunc
}

// NewJWKSVerifier fetches the key set at jwksURL and keeps it refreshed in
// the background until ctx is cancelled.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, audience string) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, fmt.Errorf("jwks url is required")
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
	}
	return newJWKSVerifier(jwks, issuer, audience), nil
}

func newJWKSVerifier(jwks keyfunc.Keyfunc, issuer, audience string) *JWKSVerifier {
	return &JWKSVerifier{issuer: issuer, audience: audience, jwks: jwks}
}

func (v *JWKSVerifier) Name() string { return "jwks" }

// Verify parses an externally issued JWT. The employee id is taken from the
// employee_id claim when present, otherwise from sub.
func (v *JWKSVerifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenStr, v.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}

	userID := claimStr(claims, "employee_id")
	if userID == "" {
		userID = claimStr(claims, "sub")
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}

	role := "user"
	if r := claimStr(claims, "role"); r == "admin" || r == "org:admin" {
		role = "admin"
	}

	username := userID
	switch {
	case claimStr(claims, "preferred_username") != "":
		username = claimStr(claims, "preferred_username")
	case claimStr(claims, "name") != "":
		username = claimStr(claims, "name")
	case claimStr(claims, "given_name") != "" || claimStr(claims, "family_name") != "":
		username = strings.TrimSpace(claimStr(claims, "given_name") + " " + claimStr(claims, "family_name"))
	case claimStr(claims, "email") != "":
		username = claimStr(claims, "email")
	}

	return &Identity{
		UserID:   userID,
		Username: username,
		Role:     role,
		OrgID:    claimStr(claims, "org_id"),
	}, nil
}

// claimStr extracts a string claim or returns "".
func claimStr(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
