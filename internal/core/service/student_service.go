package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type StudentService struct {
	students   ports.StudentRepository
	mokjangs   ports.MokjangRepository
	attendance ports.AttendanceRepository
	ministries ports.MinistryRepository
	logger     zerolog.Logger
}

func NewStudentService(
	students ports.StudentRepository,
	mokjangs ports.MokjangRepository,
	attendance ports.AttendanceRepository,
	ministries ports.MinistryRepository,
	logger zerolog.Logger,
) *StudentService {
	return &StudentService{students: students, mokjangs: mokjangs, attendance: attendance, ministries: ministries, logger: logger}
}

func (s *StudentService) Create(ctx context.Context, in ports.StudentInput) (*domain.Student, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	now := time.Now().UTC()
	st := &domain.Student{CreatedAt: now}
	if err := s.apply(ctx, st, in); err != nil {
		return nil, err
	}
	st.UpdatedAt = now
	return s.students.Create(ctx, st)
}

func (s *StudentService) Get(ctx context.Context, id string) (*domain.Student, error) {
	return s.students.FindByID(ctx, id)
}

func (s *StudentService) List(ctx context.Context, mokjangID string) ([]*domain.Student, error) {
	return s.students.List(ctx, mokjangID)
}

func (s *StudentService) Update(ctx context.Context, id string, in ports.StudentInput) (*domain.Student, error) {
	st, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, st, in); err != nil {
		return nil, err
	}
	st.UpdatedAt = time.Now().UTC()
	if err := s.students.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes the student with their attendance marks and ministry memberships.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.students.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.attendance.DeleteByStudent(ctx, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if err := s.ministries.RemoveMemberEverywhere(ctx, domain.MemberStudent, id); err != nil {
		return fmt.Errorf("remove student from ministries: %w", err)
	}
	return nil
}

func (s *StudentService) apply(ctx context.Context, st *domain.Student, in ports.StudentInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		st.Name = name
	}
	if in.Grade != nil {
		if *in.Grade < 0 || *in.Grade > 12 {
			return fmt.Errorf("%w: grade must be between 0 and 12", domain.ErrInvalidInput)
		}
		st.Grade = *in.Grade
	}
	if in.Gender != nil {
		st.Gender = strings.TrimSpace(*in.Gender)
	}
	if in.Phone != nil {
		st.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.ParentPhone != nil {
		st.ParentPhone = strings.TrimSpace(*in.ParentPhone)
	}
	if in.Birthday != nil {
		b := strings.TrimSpace(*in.Birthday)
		if b != "" {
			if _, err := time.Parse("2006-01-02", b); err != nil {
				return fmt.Errorf("%w: birthday must be YYYY-MM-DD", domain.ErrInvalidInput)
			}
		}
		st.Birthday = b
	}
	if in.MokjangID != nil {
		id := strings.TrimSpace(*in.MokjangID)
		if id != "" {
			if _, err := s.mokjangs.FindByID(ctx, id); err != nil {
				return fmt.Errorf("mokjang %s: %w", id, err)
			}
		}
		st.MokjangID = id
	}
	if in.Notes != nil {
		st.Notes = *in.Notes
	}
	return nil
}
