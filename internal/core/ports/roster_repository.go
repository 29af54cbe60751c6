package ports

import (
	"context"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

// TeacherRepository defines persistence for teacher profiles.
type TeacherRepository interface {
	Create(ctx context.Context, t *domain.Teacher) (*domain.Teacher, error)
	FindByID(ctx context.Context, id string) (*domain.Teacher, error)
	// FindByUserID returns domain.ErrNotFound when the account has no profile yet.
	FindByUserID(ctx context.Context, userID string) (*domain.Teacher, error)
	List(ctx context.Context) ([]*domain.Teacher, error)
	Update(ctx context.Context, t *domain.Teacher) error
	Delete(ctx context.Context, id string) error
}

// StudentRepository defines persistence for students.
type StudentRepository interface {
	Create(ctx context.Context, s *domain.Student) (*domain.Student, error)
	FindByID(ctx context.Context, id string) (*domain.Student, error)
	List(ctx context.Context, mokjangID string) ([]*domain.Student, error)
	Update(ctx context.Context, s *domain.Student) error
	Delete(ctx context.Context, id string) error
	// UnassignMokjang clears mokjangId on every student of the group.
	UnassignMokjang(ctx context.Context, mokjangID string) error
}

// MokjangRepository defines persistence for small groups.
type MokjangRepository interface {
	Create(ctx context.Context, m *domain.Mokjang) (*domain.Mokjang, error)
	FindByID(ctx context.Context, id string) (*domain.Mokjang, error)
	List(ctx context.Context) ([]*domain.Mokjang, error)
	Update(ctx context.Context, m *domain.Mokjang) error
	Delete(ctx context.Context, id string) error
}

// AttendanceRepository defines persistence for weekly marks.
type AttendanceRepository interface {
	// Upsert stores the mark for (StudentID, Week), replacing any previous one.
	Upsert(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error)
	// List returns marks with from <= week <= to; empty bounds are open.
	List(ctx context.Context, from, to string) ([]*domain.Attendance, error)
	Delete(ctx context.Context, id string) error
	DeleteByStudent(ctx context.Context, studentID string) error
}

// MinistryRepository defines persistence for ministries and their members.
type MinistryRepository interface {
	Create(ctx context.Context, m *domain.Ministry) (*domain.Ministry, error)
	FindByID(ctx context.Context, id string) (*domain.Ministry, error)
	List(ctx context.Context) ([]*domain.Ministry, error)
	Update(ctx context.Context, m *domain.Ministry) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) error
	RemoveMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) error
	// RemoveMemberEverywhere drops memberID from every ministry.
	RemoveMemberEverywhere(ctx context.Context, kind domain.MemberKind, memberID string) error
}

// SMSLogRepository records outgoing messages.
type SMSLogRepository interface {
	InsertMany(ctx context.Context, msgs []*domain.SMSMessage) error
	UpdateStatus(ctx context.Context, id string, status domain.SMSStatus, errMsg string) error
	List(ctx context.Context, limit int) ([]*domain.SMSMessage, error)
}
