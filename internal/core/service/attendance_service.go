package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

type AttendanceService struct {
	attendance ports.AttendanceRepository
	students   ports.StudentRepository
}

func NewAttendanceService(attendance ports.AttendanceRepository, students ports.StudentRepository) *AttendanceService {
	return &AttendanceService{attendance: attendance, students: students}
}

// Mark records presence for the week containing in.Week; a second mark for the
// same student and week replaces the first.
func (s *AttendanceService) Mark(ctx context.Context, in ports.MarkAttendanceInput) (*domain.Attendance, error) {
	week, err := domain.NormalizeWeek(in.Week)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, in.StudentID); err != nil {
		return nil, fmt.Errorf("student %s: %w", in.StudentID, err)
	}
	return s.attendance.Upsert(ctx, &domain.Attendance{
		StudentID:  in.StudentID,
		Week:       week,
		Present:    in.Present,
		RecordedBy: in.RecordedBy,
		UpdatedAt:  time.Now().UTC(),
	})
}

func (s *AttendanceService) List(ctx context.Context, from, to string) ([]*domain.Attendance, error) {
	var err error
	if from != "" {
		if from, err = domain.NormalizeWeek(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if to, err = domain.NormalizeWeek(to); err != nil {
			return nil, err
		}
	}
	return s.attendance.List(ctx, from, to)
}

func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	return s.attendance.Delete(ctx, id)
}
