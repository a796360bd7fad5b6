package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims minted and accepted by the builtin verifier.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"usr"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// BuiltinVerifier validates HS256 tokens signed with a shared secret.
type BuiltinVerifier struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewBuiltinVerifier creates a verifier for tokens signed with secret.
// Tokens it generates expire after expiry.
func NewBuiltinVerifier(secret string, expiry time.Duration, issuer string) *BuiltinVerifier {
	return &BuiltinVerifier{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

func (v *BuiltinVerifier) Name() string { return "builtin" }

// Verify parses and validates tokenStr.
func (v *BuiltinVerifier) Verify(_ context.Context, tokenStr string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrUnauthorized
	}

	return &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		OrgID:    "default",
	}, nil
}

// Generate mints a token for id.
func (v *BuiltinVerifier) Generate(id Identity) (string, error) {
	if id.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}
	role := id.Role
	if role == "" {
		role = "user"
	}
	now := time.Now()
	claims := &Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
