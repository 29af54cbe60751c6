package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type MinistryService struct {
	ministries ports.MinistryRepository
	students   ports.StudentRepository
	teachers   ports.TeacherRepository
}

func NewMinistryService(ministries ports.MinistryRepository, students ports.StudentRepository, teachers ports.TeacherRepository) *MinistryService {
	return &MinistryService{ministries: ministries, students: students, teachers: teachers}
}

func (s *MinistryService) Create(ctx context.Context, in ports.MinistryInput) (*domain.Ministry, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	now := time.Now().UTC()
	m := &domain.Ministry{StudentIDs: []string{}, TeacherIDs: []string{}, CreatedAt: now, UpdatedAt: now}
	if err := applyMinistry(m, in); err != nil {
		return nil, err
	}
	return s.ministries.Create(ctx, m)
}

func (s *MinistryService) List(ctx context.Context) ([]*domain.Ministry, error) {
	return s.ministries.List(ctx)
}

func (s *MinistryService) Update(ctx context.Context, id string, in ports.MinistryInput) (*domain.Ministry, error) {
	m, err := s.ministries.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyMinistry(m, in); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()
	if err := s.ministries.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MinistryService) Delete(ctx context.Context, id string) error {
	return s.ministries.Delete(ctx, id)
}

// AddMember is idempotent: adding an existing member is not an error.
func (s *MinistryService) AddMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) (*domain.Ministry, error) {
	if err := s.checkMember(ctx, kind, memberID); err != nil {
		return nil, err
	}
	if err := s.ministries.AddMember(ctx, id, kind, memberID); err != nil {
		return nil, err
	}
	return s.ministries.FindByID(ctx, id)
}

func (s *MinistryService) RemoveMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) (*domain.Ministry, error) {
	if kind != domain.MemberStudent && kind != domain.MemberTeacher {
		return nil, fmt.Errorf("%w: member kind %q", domain.ErrInvalidInput, kind)
	}
	if err := s.ministries.RemoveMember(ctx, id, kind, memberID); err != nil {
		return nil, err
	}
	return s.ministries.FindByID(ctx, id)
}

func (s *MinistryService) checkMember(ctx context.Context, kind domain.MemberKind, memberID string) error {
	var err error
	switch kind {
	case domain.MemberStudent:
		_, err = s.students.FindByID(ctx, memberID)
	case domain.MemberTeacher:
		_, err = s.teachers.FindByID(ctx, memberID)
	default:
		return fmt.Errorf("%w: member kind %q", domain.ErrInvalidInput, kind)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, memberID, err)
	}
	return nil
}

func applyMinistry(m *domain.Ministry, in ports.MinistryInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		m.Name = name
	}
	if in.Description != nil {
		m.Description = strings.TrimSpace(*in.Description)
	}
	return nil
}
