package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role uint8

const (
	roleUnknown Role = iota
	RoleAdmin
	RoleTeacher
)

// ParseRole converts a wire value into a Role. Unknown values are rejected.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "teacher":
		return RoleTeacher, nil
	}
	return roleUnknown, fmt.Errorf("%w: role %q", ErrUnknownEnum, s)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleTeacher:
		return "teacher"
	}
	return "unknown"
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: role %d", ErrUnknownEnum, r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ApprovalStatus is the closed set of teacher profile approval states.
type ApprovalStatus uint8

const (
	approvalUnknown ApprovalStatus = iota
	ApprovalPending
	ApprovalApproved
)

func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch s {
	case "pending":
		return ApprovalPending, nil
	case "approved":
		return ApprovalApproved, nil
	}
	return approvalUnknown, fmt.Errorf("%w: approval status %q", ErrUnknownEnum, s)
}

func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalPending:
		return "pending"
	case ApprovalApproved:
		return "approved"
	}
	return "unknown"
}

func (s ApprovalStatus) Valid() bool {
	return s == ApprovalPending || s == ApprovalApproved
}

func (s ApprovalStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: approval status %d", ErrUnknownEnum, s)
	}
	return []byte(s.String()), nil
}

func (s *ApprovalStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseApprovalStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// User is a stored account.
type User struct {
	ID                 string
	Email              string
	PasswordHash       string
	Role               Role
	MustChangePassword bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TeacherProfile is the slice of a Teacher exposed on the session user.
type TeacherProfile struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Phone  string         `json:"phone,omitempty"`
	Status ApprovalStatus `json:"status"`
}

// SessionUser is the authenticated principal as seen by the browser.
// A teacher account may not have a linked profile yet.
type SessionUser struct {
	ID                 string          `json:"id"`
	Email              string          `json:"email"`
	Role               Role            `json:"role"`
	MustChangePassword bool            `json:"mustChangePassword"`
	Teacher            *TeacherProfile `json:"teacher,omitempty"`
}

// PendingApproval reports whether the linked teacher profile still awaits approval.
func (u *SessionUser) PendingApproval() bool {
	if u == nil || u.Teacher == nil {
		return false
	}
	switch u.Teacher.Status {
	case ApprovalPending:
		return true
	case ApprovalApproved:
		return false
	}
	return false
}

// NewSessionUser builds the browser view of an account and its optional teacher profile.
func NewSessionUser(u *User, t *Teacher) *SessionUser {
	su := &SessionUser{
		ID:                 u.ID,
		Email:              u.Email,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
	}
	if t != nil {
		su.Teacher = &TeacherProfile{ID: t.ID, Name: t.Name, Phone: t.Phone, Status: t.Status}
	}
	return su
}
