// Package auth verifies bearer tokens and guards routes by role.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/comment-platform/internal/platform/api"
	"github.com/example/comment-platform/internal/platform/httpserver"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the caller identity carried by a verified token.
type Principal struct {
	Subject string
	Role    string
}

type ctxKeyPrincipal struct{}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal{}).(Principal)
	return p, ok
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal{}, p)
}

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTVerifier checks HS256 bearer tokens signed with Secret.
// Issuer is enforced when set; Leeway absorbs clock skew on exp and nbf.
type JWTVerifier struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

func (v JWTVerifier) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.Leeway),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}

	claims := &Claims{}
	tok, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireUser rejects requests without a valid bearer token and stores the
// caller's Principal in the request context.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := httpserver.RequestIDFromContext(r.Context())
			header := r.Header.Get("Authorization")
			if strings.TrimSpace(header) == "" {
				api.Unauthorized(w, "MISSING_TOKEN", "authorization header required", rid)
				return
			}
			raw, ok := bearerToken(header)
			if !ok {
				api.Unauthorized(w, "INVALID_AUTH_SCHEME", "bearer token required", rid)
				return
			}
			claims, err := verifier.Parse(raw)
			if err != nil {
				api.Unauthorized(w, "INVALID_TOKEN", "token is invalid or expired", rid)
				return
			}
			p := Principal{Subject: claims.Subject, Role: strings.TrimSpace(claims.Role)}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
