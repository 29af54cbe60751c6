// Package session exposes who is logged in and the operations that change it.
//
// The current user lives in the request cache under UserKey. Only the initial
// fetch, Refresh and the four identity operations below write that entry.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/client/cache"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

// UserKey is the current-user endpoint and its cache key.
const UserKey = "/api/user"

// State is the session as seen by one render.
type State struct {
	User    *domain.SessionUser
	Loading bool
	Err     error
}

// RegisterInput is a self-registration. Name and Phone are optional.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type Provider struct {
	cache *cache.Cache
	log   zerolog.Logger
}

func New(c *cache.Cache, log zerolog.Logger) *Provider {
	return &Provider{cache: c, log: log}
}

// Current returns the session, fetching the user when the cached copy is
// missing or stale. A 401 means nobody is logged in and is not an error.
// If ctx ends before the fetch settles the state reports Loading.
func (p *Provider) Current(ctx context.Context) State {
	u, err := cache.Get[*domain.SessionUser](ctx, p.cache, UserKey, cache.On401Nil())
	switch {
	case err == nil && u != nil && !u.Role.Valid():
		return State{Err: fmt.Errorf("session user %s: %w: missing role", u.ID, domain.ErrUnknownEnum)}
	case err == nil:
		return State{User: u}
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return State{Loading: true}
	}
	return State{Err: err}
}

// Snapshot reports the cached session without blocking. Before the first
// fetch has settled it reports Loading.
func (p *Provider) Snapshot() State {
	raw, ok := p.cache.Peek(UserKey)
	if !ok {
		return State{Loading: true}
	}
	var u *domain.SessionUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return State{Err: fmt.Errorf("decode session user: %w", err)}
	}
	return State{User: u}
}

// Refresh discards the cached user and fetches it again.
func (p *Provider) Refresh(ctx context.Context) State {
	p.cache.Invalidate(UserKey)
	return p.Current(ctx)
}

// Login authenticates and makes the returned user current without a refetch.
// On failure the cached user is left as it was.
func (p *Provider) Login(ctx context.Context, email, password string) (*domain.SessionUser, error) {
	body := map[string]string{"email": email, "password": password}
	return p.identify(ctx, "/api/login", body)
}

// Register creates a teacher account and makes it current.
func (p *Provider) Register(ctx context.Context, in RegisterInput) (*domain.SessionUser, error) {
	return p.identify(ctx, "/api/register", in)
}

// ChangePassword sets a new password. currentPassword may be empty when the
// account is flagged for a forced change. The returned user no longer carries
// the flag.
func (p *Provider) ChangePassword(ctx context.Context, newPassword, currentPassword string) (*domain.SessionUser, error) {
	body := struct {
		NewPassword     string `json:"newPassword"`
		CurrentPassword string `json:"currentPassword,omitempty"`
	}{newPassword, currentPassword}
	return p.identify(ctx, "/api/change-password", body)
}

// Logout ends the server session and then empties the whole cache, so nothing
// fetched for this user is served to the next one.
func (p *Provider) Logout(ctx context.Context) error {
	if _, err := p.cache.Request(ctx, http.MethodPost, "/api/logout", nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	p.cache.Clear()
	p.log.Debug().Msg("session ended, cache cleared")
	return nil
}

func (p *Provider) identify(ctx context.Context, path string, body any) (*domain.SessionUser, error) {
	raw, err := p.cache.Request(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var u domain.SessionUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	if !u.Role.Valid() {
		return nil, fmt.Errorf("decode %s response: %w: missing role", path, domain.ErrUnknownEnum)
	}
	p.cache.Set(UserKey, raw)
	return &u, nil
}

// Message turns any error from this package into text for a flash message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return cache.MessageOf(err)
}
