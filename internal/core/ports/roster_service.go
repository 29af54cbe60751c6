package ports

import (
	"context"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

// CreateTeacherInput is an admin-created teacher account. The account starts
// approved and must change its temporary password on first login.
type CreateTeacherInput struct {
	Email             string
	TemporaryPassword string
	Name              string
	Phone             string
}

// UpdateTeacherInput is a partial update; nil fields are left untouched.
type UpdateTeacherInput struct {
	Name   *string
	Phone  *string
	Status *domain.ApprovalStatus
}

type TeacherService interface {
	Create(ctx context.Context, input CreateTeacherInput) (*domain.Teacher, error)
	List(ctx context.Context) ([]*domain.Teacher, error)
	Update(ctx context.Context, id string, input UpdateTeacherInput) (*domain.Teacher, error)
	Delete(ctx context.Context, id string) error
}

// StudentInput is used for both create and partial update.
type StudentInput struct {
	Name        *string
	Grade       *int
	Gender      *string
	Phone       *string
	ParentPhone *string
	Birthday    *string
	MokjangID   *string
	Notes       *string
}

type StudentService interface {
	Create(ctx context.Context, input StudentInput) (*domain.Student, error)
	Get(ctx context.Context, id string) (*domain.Student, error)
	List(ctx context.Context, mokjangID string) ([]*domain.Student, error)
	Update(ctx context.Context, id string, input StudentInput) (*domain.Student, error)
	Delete(ctx context.Context, id string) error
}

// MokjangInput is used for both create and partial update.
type MokjangInput struct {
	Name      *string
	TeacherID *string
}

type MokjangService interface {
	Create(ctx context.Context, input MokjangInput) (*domain.Mokjang, error)
	List(ctx context.Context) ([]*domain.Mokjang, error)
	Update(ctx context.Context, id string, input MokjangInput) (*domain.Mokjang, error)
	Delete(ctx context.Context, id string) error
}

// MarkAttendanceInput records one student's presence for a week.
type MarkAttendanceInput struct {
	StudentID  string
	Week       string
	Present    bool
	RecordedBy string
}

type AttendanceService interface {
	Mark(ctx context.Context, input MarkAttendanceInput) (*domain.Attendance, error)
	List(ctx context.Context, from, to string) ([]*domain.Attendance, error)
	Delete(ctx context.Context, id string) error
}

// MinistryInput is used for both create and partial update.
type MinistryInput struct {
	Name        *string
	Description *string
}

type MinistryService interface {
	Create(ctx context.Context, input MinistryInput) (*domain.Ministry, error)
	List(ctx context.Context) ([]*domain.Ministry, error)
	Update(ctx context.Context, id string, input MinistryInput) (*domain.Ministry, error)
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) (*domain.Ministry, error)
	RemoveMember(ctx context.Context, id string, kind domain.MemberKind, memberID string) (*domain.Ministry, error)
}

// SendSMSInput is a bulk send to a list of recipients.
type SendSMSInput struct {
	Recipients []domain.Recipient
	Message    string
	SentBy     string
}

// SendSMSResult holds the persisted, still queued copies of a batch.
type SendSMSResult struct {
	BatchID  string
	Messages []*domain.SMSMessage
}

type SMSService interface {
	// Queue validates and records a batch; delivery happens asynchronously.
	Queue(ctx context.Context, input SendSMSInput) (*SendSMSResult, error)
	History(ctx context.Context, limit int) ([]*domain.SMSMessage, error)
	// Deliver sends one queued message and records the outcome.
	Deliver(ctx context.Context, msg *domain.SMSMessage) error
	// Abandon records a message that will never be sent.
	Abandon(ctx context.Context, msg *domain.SMSMessage, reason string)
}

// SMSSender is the outbound SMS gateway.
type SMSSender interface {
	Send(ctx context.Context, phone, body string) error
}
