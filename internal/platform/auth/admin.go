package auth

import (
	"net/http"
	"strings"

	"github.com/example/comment-platform/internal/platform/api"
	"github.com/example/comment-platform/internal/platform/httpserver"
)

// RoleAdmin is the role allowed to run moderation operations.
const RoleAdmin = "admin"

// RequireRole allows the request only if RequireUser injected the given role.
// Roles compare case-insensitively.
func RequireRole(role string) func(next http.Handler) http.Handler {
	want := strings.ToLower(strings.TrimSpace(role))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromContext(r.Context())
			if strings.ToLower(p.Role) != want {
				api.Forbidden(w, "FORBIDDEN", "role "+want+" required", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole(RoleAdmin).
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(RoleAdmin)(next)
}
