package domain

import "time"

// Teacher is a ministry teacher profile, linked to exactly one account.
type Teacher struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone,omitempty"`
	Status    ApprovalStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Student is a youth group member.
type Student struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Grade       int       `json:"grade,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	ParentPhone string    `json:"parentPhone,omitempty"`
	Birthday    string    `json:"birthday,omitempty"`
	MokjangID   string    `json:"mokjangId,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Mokjang is a small group led by one teacher.
type Mokjang struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacherId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemberKind distinguishes the two kinds of ministry members.
type MemberKind string

const (
	MemberStudent MemberKind = "student"
	MemberTeacher MemberKind = "teacher"
)

// Ministry is a department that students and teachers join independently of mokjang.
type Ministry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StudentIDs  []string  `json:"studentIds"`
	TeacherIDs  []string  `json:"teacherIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasMember reports whether id is a member of the given kind.
func (m *Ministry) HasMember(kind MemberKind, id string) bool {
	ids := m.StudentIDs
	if kind == MemberTeacher {
		ids = m.TeacherIDs
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
