package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

// sessionClaims is the payload of the session cookie token.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService implements registration, login, logout and password changes.
type AuthService struct {
	users     ports.UserRepository
	teachers  ports.TeacherRepository
	sessions  ports.SessionStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	teachers ports.TeacherRepository,
	sessions ports.SessionStore,
	jwtSecret string,
	tokenTTL time.Duration,
	logger zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		teachers:  teachers,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// TokenTTL is the lifetime of issued session tokens.
func (s *AuthService) TokenTTL() time.Duration { return s.tokenTTL }

// Register creates a teacher account with a pending profile and signs it in.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.IssuedSession, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if len(in.Password) < domain.MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleTeacher,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	teacher, err := s.teachers.Create(ctx, &domain.Teacher{
		UserID:    user.ID,
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Status:    domain.ApprovalPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("user_id", user.ID).Msg("failed to roll back user after profile error")
		}
		return nil, fmt.Errorf("create teacher profile: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("teacher registered, awaiting approval")
	return s.issue(ctx, domain.NewSessionUser(user, teacher))
}

// Login verifies credentials and issues a new session.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.IssuedSession, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	teacher, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, domain.NewSessionUser(user, teacher))
}

func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, tokenID)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.SessionUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	teacher, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return domain.NewSessionUser(user, teacher), nil
}

// ChangePassword replaces the password and clears the forced-change flag.
// The current password is only optional while the flag is set.
func (s *AuthService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) (*domain.SessionUser, error) {
	if len(in.NewPassword) < domain.MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !user.MustChangePassword || in.CurrentPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
			return nil, domain.ErrPasswordMismatch
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), false); err != nil {
		return nil, err
	}
	user.PasswordHash = string(hash)
	user.MustChangePassword = false

	teacher, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("password changed")
	return domain.NewSessionUser(user, teacher), nil
}

// Authenticate validates a session token and checks it has not been revoked.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*ports.Claims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidCredentials
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil || claims.Subject == "" || claims.ID == "" {
		return nil, domain.ErrInvalidCredentials
	}

	live, err := s.sessions.Exists(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !live {
		return nil, domain.ErrSessionRevoked
	}
	return &ports.Claims{UserID: claims.Subject, Role: role, TokenID: claims.ID}, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// The account must change its password on first login.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	if len(password) < domain.MinPasswordLength {
		return domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err := s.users.Create(ctx, &domain.User{
		Email:              email,
		PasswordHash:       string(hash),
		Role:               domain.RoleAdmin,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}); err != nil {
		return err
	}
	s.logger.Info().Str("email", email).Msg("bootstrap admin created")
	return nil
}

func (s *AuthService) issue(ctx context.Context, user *domain.SessionUser) (*ports.IssuedSession, error) {
	now := time.Now()
	claims := sessionClaims{
		Role: user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, claims.ID, user.ID, s.tokenTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &ports.IssuedSession{Token: signed, User: user}, nil
}

func (s *AuthService) profileOf(ctx context.Context, userID string) (*domain.Teacher, error) {
	t, err := s.teachers.FindByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil && strings.Contains(email, "@")
}
