package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func sign(t *testing.T, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func claimsFor(subject, role string, exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "comment-platform",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}
}

func TestJWTVerifier_Parse(t *testing.T) {
	v := JWTVerifier{Secret: testSecret}
	hour := time.Now().Add(time.Hour)

	cases := []struct {
		name    string
		raw     func(t *testing.T) string
		v       JWTVerifier
		wantErr bool
	}{
		{"valid", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, claimsFor("u1", "admin", hour)) }, v, false},
		{"expired", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, claimsFor("u1", "", time.Now().Add(-time.Hour)))
		}, v, true},
		{"expired within leeway", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, claimsFor("u1", "", time.Now().Add(-10*time.Second)))
		}, JWTVerifier{Secret: testSecret, Leeway: time.Minute}, false},
		{"no expiry", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
		}, v, true},
		{"no subject", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, claimsFor("", "admin", hour)) }, v, true},
		{"other algorithm", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS384, claimsFor("u1", "", hour)) }, v, true},
		{"wrong secret", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, claimsFor("u1", "", hour)) },
			JWTVerifier{Secret: []byte("another-secret")}, true},
		{"issuer match", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, claimsFor("u1", "", hour)) },
			JWTVerifier{Secret: testSecret, Issuer: "comment-platform"}, false},
		{"issuer mismatch", func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, claimsFor("u1", "", hour)) },
			JWTVerifier{Secret: testSecret, Issuer: "someone-else"}, true},
		{"malformed", func(*testing.T) string { return "not.a.token" }, v, true},
	}
	for _, tc := range cases {
		claims, err := tc.v.Parse(tc.raw(t))
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected an error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if claims.Subject != "u1" {
			t.Fatalf("%s: expected subject u1, got %q", tc.name, claims.Subject)
		}
	}
}

func TestJWTVerifier_OtherAlgorithmIsSignatureError(t *testing.T) {
	raw := sign(t, jwt.SigningMethodHS384, claimsFor("u1", "", time.Now().Add(time.Hour)))
	_, err := JWTVerifier{Secret: testSecret}.Parse(raw)
	if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected ErrTokenSignatureInvalid, got %v", err)
	}
}

func TestJWTVerifier_TamperedPayload(t *testing.T) {
	raw := sign(t, jwt.SigningMethodHS256, claimsFor("u1", "user", time.Now().Add(time.Hour)))
	parts := strings.Split(raw, ".")
	if _, err := (JWTVerifier{Secret: testSecret}).Parse(parts[0] + ".dGFtcGVyZWQ." + parts[2]); err == nil {
		t.Fatal("expected error for tampered token")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		tok string
		ok  bool
	}{
		"Bearer abc":   {"abc", true},
		"bearer  abc ": {"abc", true},
		"Basic abc":    {"", false},
		"Bearer":       {"", false},
		"Bearer   ":    {"", false},
	}
	for header, want := range cases {
		tok, ok := bearerToken(header)
		if tok != want.tok || ok != want.ok {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", header, tok, ok, want.tok, want.ok)
		}
	}
}

func serveRequireUser(header string) (*httptest.ResponseRecorder, Principal) {
	var seen Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	RequireUser(JWTVerifier{Secret: testSecret})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	return rr, seen
}

func TestRequireUser(t *testing.T) {
	raw := sign(t, jwt.SigningMethodHS256, claimsFor("moderator-7", " admin ", time.Now().Add(time.Hour)))

	rr, p := serveRequireUser("Bearer " + raw)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if p.Subject != "moderator-7" || p.Role != "admin" {
		t.Fatalf("unexpected principal %+v", p)
	}

	cases := []struct {
		header string
		code   string
	}{
		{"", "MISSING_TOKEN"},
		{"Basic dXNlcjpwYXNz", "INVALID_AUTH_SCHEME"},
		{"Bearer invalid.token.here", "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		rr, _ := serveRequireUser(tc.header)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", tc.header, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), tc.code) {
			t.Fatalf("%q: expected %s envelope, got %q", tc.header, tc.code, rr.Body.String())
		}
	}
}

func serveRole(mw func(http.Handler) http.Handler, ctx context.Context) int {
	req := httptest.NewRequest(http.MethodDelete, "/", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireRole(t *testing.T) {
	bg := context.Background()
	cases := []struct {
		name string
		mw   func(http.Handler) http.Handler
		ctx  context.Context
		want int
	}{
		{"admin", RequireAdmin, WithPrincipal(bg, Principal{Subject: "u", Role: "admin"}), http.StatusNoContent},
		{"admin uppercase", RequireAdmin, WithPrincipal(bg, Principal{Subject: "u", Role: "ADMIN"}), http.StatusNoContent},
		{"user", RequireAdmin, WithPrincipal(bg, Principal{Subject: "u", Role: "user"}), http.StatusForbidden},
		{"anonymous", RequireAdmin, bg, http.StatusForbidden},
		{"custom role", RequireRole("Moderator"), WithPrincipal(bg, Principal{Role: "moderator"}), http.StatusNoContent},
	}
	for _, tc := range cases {
		if got := serveRole(tc.mw, tc.ctx); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
