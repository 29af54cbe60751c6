package ports

import (
	"context"
	"time"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

// RegisterInput carries a self-registration. Name and Phone are optional.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// ChangePasswordInput carries a password change. CurrentPassword may be empty only
// when the account is flagged for a forced change.
type ChangePasswordInput struct {
	UserID          string
	NewPassword     string
	CurrentPassword string
}

// Claims is what the session middleware extracts from a valid token.
type Claims struct {
	UserID  string
	Role    domain.Role
	TokenID string
}

// IssuedSession is a signed token bound to a user.
type IssuedSession struct {
	Token string
	User  *domain.SessionUser
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*IssuedSession, error)
	Login(ctx context.Context, email, password string) (*IssuedSession, error)
	Logout(ctx context.Context, tokenID string) error
	CurrentUser(ctx context.Context, userID string) (*domain.SessionUser, error)
	ChangePassword(ctx context.Context, input ChangePasswordInput) (*domain.SessionUser, error)
	Authenticate(ctx context.Context, token string) (*Claims, error)
	EnsureAdmin(ctx context.Context, email, password string) error
	TokenTTL() time.Duration
}
