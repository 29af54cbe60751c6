package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type MokjangService struct {
	mokjangs ports.MokjangRepository
	teachers ports.TeacherRepository
	students ports.StudentRepository
}

func NewMokjangService(mokjangs ports.MokjangRepository, teachers ports.TeacherRepository, students ports.StudentRepository) *MokjangService {
	return &MokjangService{mokjangs: mokjangs, teachers: teachers, students: students}
}

func (s *MokjangService) Create(ctx context.Context, in ports.MokjangInput) (*domain.Mokjang, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	now := time.Now().UTC()
	m := &domain.Mokjang{CreatedAt: now, UpdatedAt: now}
	if err := s.apply(ctx, m, in); err != nil {
		return nil, err
	}
	return s.mokjangs.Create(ctx, m)
}

func (s *MokjangService) List(ctx context.Context) ([]*domain.Mokjang, error) {
	return s.mokjangs.List(ctx)
}

func (s *MokjangService) Update(ctx context.Context, id string, in ports.MokjangInput) (*domain.Mokjang, error) {
	m, err := s.mokjangs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, m, in); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()
	if err := s.mokjangs.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes the group and leaves its students unassigned.
func (s *MokjangService) Delete(ctx context.Context, id string) error {
	if err := s.mokjangs.Delete(ctx, id); err != nil {
		return err
	}
	return s.students.UnassignMokjang(ctx, id)
}

func (s *MokjangService) apply(ctx context.Context, m *domain.Mokjang, in ports.MokjangInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		m.Name = name
	}
	if in.TeacherID != nil {
		id := strings.TrimSpace(*in.TeacherID)
		if id != "" {
			if _, err := s.teachers.FindByID(ctx, id); err != nil {
				return fmt.Errorf("teacher %s: %w", id, err)
			}
		}
		m.TeacherID = id
	}
	return nil
}
