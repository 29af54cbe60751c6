package handler

import (
	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

// --- Request → Service input ---

func toStudentInput(r studentRequest) ports.StudentInput {
	return ports.StudentInput{
		Name:        r.Name,
		Grade:       r.Grade,
		Gender:      r.Gender,
		Phone:       r.Phone,
		ParentPhone: r.ParentPhone,
		Birthday:    r.Birthday,
		MokjangID:   r.MokjangID,
		Notes:       r.Notes,
	}
}

func toUpdateTeacherInput(r updateTeacherRequest) (ports.UpdateTeacherInput, error) {
	in := ports.UpdateTeacherInput{Name: r.Name, Phone: r.Phone}
	if r.Status != nil {
		st, err := domain.ParseApprovalStatus(*r.Status)
		if err != nil {
			return in, err
		}
		in.Status = &st
	}
	return in, nil
}

func toRecipients(rs []recipientRequest) []domain.Recipient {
	out := make([]domain.Recipient, 0, len(rs))
	for _, r := range rs {
		out = append(out, domain.Recipient{Name: r.Name, Phone: r.Phone})
	}
	return out
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](xs []*T) []*T {
	if xs == nil {
		return []*T{}
	}
	return xs
}
