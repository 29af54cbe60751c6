package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type stubAuthenticator struct {
	claims *ports.Claims
	err    error
	token  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*ports.Claims, error) {
	s.token = token
	return s.claims, s.err
}

func TestSessionMiddleware_ValidCookie(t *testing.T) {
	e := echo.New()
	auth := &stubAuthenticator{claims: &ports.Claims{UserID: "u1", Role: domain.RoleAdmin, TokenID: "jti-1"}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "signed-token"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Session(auth, "session")
	handler := mw(func(c echo.Context) error {
		called = true
		if c.Get(UserIDKey) != "u1" {
			t.Fatalf("user id not set")
		}
		if c.Get(RoleKey) != domain.RoleAdmin {
			t.Fatalf("role not set")
		}
		if c.Get(TokenIDKey) != "jti-1" {
			t.Fatalf("token id not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if auth.token != "signed-token" {
		t.Fatalf("expected cookie value to be authenticated, got %q", auth.token)
	}
}

func TestSessionMiddleware_MissingCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Session(&stubAuthenticator{}, "session")
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionMiddleware_RevokedSession(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "old-token"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Session(&stubAuthenticator{err: domain.ErrSessionRevoked}, "session")
	handler := mw(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); err != domain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}
