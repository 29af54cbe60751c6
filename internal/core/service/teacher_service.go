package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type TeacherService struct {
	users      ports.UserRepository
	teachers   ports.TeacherRepository
	mokjangs   ports.MokjangRepository
	ministries ports.MinistryRepository
	logger     zerolog.Logger
}

func NewTeacherService(
	users ports.UserRepository,
	teachers ports.TeacherRepository,
	mokjangs ports.MokjangRepository,
	ministries ports.MinistryRepository,
	logger zerolog.Logger,
) *TeacherService {
	return &TeacherService{users: users, teachers: teachers, mokjangs: mokjangs, ministries: ministries, logger: logger}
}

// Create provisions an approved teacher with a temporary password.
func (s *TeacherService) Create(ctx context.Context, in ports.CreateTeacherInput) (*domain.Teacher, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if !validEmail(email) || name == "" {
		return nil, fmt.Errorf("%w: email and name are required", domain.ErrInvalidInput)
	}
	if len(in.TemporaryPassword) < domain.MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.TemporaryPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Email:              email,
		PasswordHash:       string(hash),
		Role:               domain.RoleTeacher,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, err
	}

	teacher, err := s.teachers.Create(ctx, &domain.Teacher{
		UserID:    user.ID,
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Status:    domain.ApprovalApproved,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("user_id", user.ID).Msg("failed to roll back user after profile error")
		}
		return nil, fmt.Errorf("create teacher profile: %w", err)
	}
	return teacher, nil
}

func (s *TeacherService) List(ctx context.Context) ([]*domain.Teacher, error) {
	return s.teachers.List(ctx)
}

func (s *TeacherService) Update(ctx context.Context, id string, in ports.UpdateTeacherInput) (*domain.Teacher, error) {
	t, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		t.Name = name
	}
	if in.Phone != nil {
		t.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: status", domain.ErrInvalidInput)
		}
		if t.Status != *in.Status {
			s.logger.Info().Str("teacher_id", t.ID).Str("status", in.Status.String()).Msg("teacher approval changed")
		}
		t.Status = *in.Status
	}
	t.UpdatedAt = time.Now().UTC()
	if err := s.teachers.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes the profile, its account, its ministry memberships and its
// mokjang leadership.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	t, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.teachers.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, t.UserID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("delete teacher account: %w", err)
	}
	if err := s.ministries.RemoveMemberEverywhere(ctx, domain.MemberTeacher, id); err != nil {
		return fmt.Errorf("remove teacher from ministries: %w", err)
	}

	groups, err := s.mokjangs.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range groups {
		if m.TeacherID != id {
			continue
		}
		m.TeacherID = ""
		m.UpdatedAt = time.Now().UTC()
		if err := s.mokjangs.Update(ctx, m); err != nil {
			return fmt.Errorf("unassign mokjang %s: %w", m.ID, err)
		}
	}
	return nil
}
