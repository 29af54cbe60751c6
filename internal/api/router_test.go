package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/api/handler"
	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

// tokenAuth treats the cookie value as "<userID>:<role>".
type tokenAuth struct{}

func (tokenAuth) Register(context.Context, ports.RegisterInput) (*ports.IssuedSession, error) {
	return nil, domain.ErrUserExists
}

func (tokenAuth) Login(context.Context, string, string) (*ports.IssuedSession, error) {
	return nil, domain.ErrInvalidCredentials
}

func (tokenAuth) Logout(context.Context, string) error { return nil }

func (tokenAuth) CurrentUser(_ context.Context, userID string) (*domain.SessionUser, error) {
	return &domain.SessionUser{ID: userID, Role: domain.RoleTeacher}, nil
}

func (tokenAuth) ChangePassword(context.Context, ports.ChangePasswordInput) (*domain.SessionUser, error) {
	return nil, domain.ErrPasswordMismatch
}

func (tokenAuth) Authenticate(_ context.Context, token string) (*ports.Claims, error) {
	id, role, ok := strings.Cut(token, ":")
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return &ports.Claims{UserID: id, Role: r, TokenID: "jti-" + id}, nil
}

func (tokenAuth) EnsureAdmin(context.Context, string, string) error { return nil }

func (tokenAuth) TokenTTL() time.Duration { return time.Hour }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := Config{Cookie: handler.CookieConfig{Name: "session"}, Registry: prometheus.NewRegistry()}
	checks := map[string]handler.Check{"mongodb": func(context.Context) error { return nil }}
	return NewRouter(&Services{Auth: tokenAuth{}}, nil, checks, cfg, zerolog.Nop())
}

func serve(h http.Handler, method, target, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Access(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		name, method, target, cookie string
		code                         int
	}{
		{"current user without session", http.MethodGet, "/api/user", "", http.StatusUnauthorized},
		{"current user with bad token", http.MethodGet, "/api/user", "garbage", http.StatusUnauthorized},
		{"current user", http.MethodGet, "/api/user", "u1:teacher", http.StatusOK},
		{"teacher cannot create teachers", http.MethodPost, "/api/teachers", "u1:teacher", http.StatusForbidden},
		{"teacher cannot send sms", http.MethodPost, "/api/sms", "u1:teacher", http.StatusForbidden},
		{"teacher cannot delete mokjangs", http.MethodDelete, "/api/mokjangs/m1", "u1:teacher", http.StatusForbidden},
		{"login without credentials", http.MethodPost, "/api/login", "", http.StatusBadRequest},
		{"logout without session", http.MethodPost, "/api/logout", "", http.StatusOK},
		{"liveness", http.MethodGet, "/health", "", http.StatusOK},
		{"readiness", http.MethodGet, "/health/ready", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}
	for _, tc := range cases {
		rec := serve(r, tc.method, tc.target, tc.cookie)
		if rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/api/user", "")
	if !strings.Contains(rec.Body.String(), `"error":"not logged in"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
