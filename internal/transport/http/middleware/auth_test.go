package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ems/internal/domain/auth"
)

type stubSessions struct {
	active bool
	err    error
}

func (s stubSessions) SessionActive(ctx context.Context, userID, sessionID string) (bool, error) {
	return s.active, s.err
}

type stubPerms map[string]bool

func (s stubPerms) Allowed(role, permission string) (bool, error) {
	return s[role+"|"+permission], nil
}

func hrToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", RoleName: auth.RoleHR, EmployeeID: "e1", SessionID: "s1"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func TestAuthMiddlewareSetsActor(t *testing.T) {
	secret := "test-secret"
	token := hrToken(t, secret)

	called := false
	handler := Auth(secret, stubSessions{active: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		actor, ok := GetActor(r.Context())
		if !ok {
			t.Fatal("expected actor in context")
		}
		if actor.UserID != "u1" || actor.Role != auth.RoleHR || actor.EmployeeID != "e1" || actor.SessionID != "s1" {
			t.Fatalf("unexpected actor: %+v", actor)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("expected handler to run")
	}
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := Auth("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); ok {
			t.Fatal("did not expect actor in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthMiddlewareRevokedSessionIsAnonymous(t *testing.T) {
	secret := "test-secret"
	token := hrToken(t, secret)

	for name, sessions := range map[string]stubSessions{
		"revoked":      {active: false},
		"lookup error": {err: errors.New("db down")},
	} {
		handler := Auth(secret, sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetActor(r.Context()); ok {
				t.Fatalf("%s: did not expect actor in context", name)
			}
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	perms := stubPerms{auth.RoleHR + "|" + auth.PermLeaveApprove: true}
	handler := RequirePermission(auth.PermLeaveApprove, perms)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	hr := httptest.NewRequest(http.MethodPost, "/", nil).
		WithContext(WithActor(context.Background(), auth.Actor{UserID: "u1", Role: auth.RoleHR}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, hr)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected HR to pass, got %d", rec.Code)
	}

	staff := httptest.NewRequest(http.MethodPost, "/", nil).
		WithContext(WithActor(context.Background(), auth.Actor{UserID: "u2", Role: auth.RoleEmployee}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, staff)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected employee to be forbidden, got %d", rec.Code)
	}
}

func TestRequestIDKeepsShortHeaderAndReplacesLongOne(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected request id to be kept, got %q", seen)
	}

	long := strings.Repeat("x", 200)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", long)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == long || seen == "" {
		t.Fatalf("expected oversized request id to be replaced, got %q", seen)
	}
}

func TestBodyLimitRefusesDeclaredOversize(t *testing.T) {
	handler := BodyLimit(4, 1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for json body, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected multipart body to use the upload limit, got %d", rec.Code)
	}
}

func TestBodyLimitCutsOffUnknownLength(t *testing.T) {
	var limited bool
	handler := BodyLimit(4, 1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		var tooLarge *http.MaxBytesError
		limited = errors.As(err, &tooLarge)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !limited {
		t.Fatal("expected streamed body to hit the limit")
	}
}

func TestAuthMiddlewareFlagsRejectedToken(t *testing.T) {
	handler := Auth("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("WWW-Authenticate"); !strings.Contains(got, "invalid_token") {
		t.Fatalf("expected invalid_token challenge, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("WWW-Authenticate"); got != "" {
		t.Fatalf("expected no challenge for non-bearer scheme, got %q", got)
	}
}

func TestRequireAnyPermission(t *testing.T) {
	perms := stubPerms{auth.RoleEmployee + "|" + auth.PermDashboardSelf: true}
	handler := RequireAnyPermission(perms, auth.PermDashboardHR, auth.PermDashboardSelf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	staff := httptest.NewRequest(http.MethodGet, "/", nil).
		WithContext(WithActor(context.Background(), auth.Actor{UserID: "u2", Role: auth.RoleEmployee}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, staff)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected second permission to admit employee, got %d", rec.Code)
	}

	guest := httptest.NewRequest(http.MethodGet, "/", nil).
		WithContext(WithActor(context.Background(), auth.Actor{UserID: "u3", Role: "Contractor"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, guest)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), auth.PermDashboardHR) {
		t.Fatalf("expected 403 naming the required permissions, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSecureHeaders(t *testing.T) {
	serve := func(policy HeaderPolicy) http.Header {
		rec := httptest.NewRecorder()
		SecureHeaders(policy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec.Header()
	}

	dev := serve(APIHeaderPolicy(false))
	if dev.Get("X-Content-Type-Options") != "nosniff" || dev.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing baseline headers: %v", dev)
	}
	if dev.Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must stay off outside production")
	}

	prod := serve(APIHeaderPolicy(true))
	if prod.Get("Strict-Transport-Security") != "max-age=63072000; includeSubDomains" {
		t.Fatalf("unexpected HSTS header %q", prod.Get("Strict-Transport-Security"))
	}

	bare := serve(HeaderPolicy{})
	if bare.Get("Cache-Control") != "" || bare.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("empty policy should only send baseline headers: %v", bare)
	}
}
