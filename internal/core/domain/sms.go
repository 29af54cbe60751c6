package domain

import (
	"sort"
	"strings"
	"time"
)

// SMSStatus tracks one outgoing message.
type SMSStatus string

const (
	SMSQueued SMSStatus = "queued"
	SMSSent   SMSStatus = "sent"
	SMSFailed SMSStatus = "failed"
)

// SMSMessage is a single recipient's copy of a bulk send.
type SMSMessage struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Body      string    `json:"body"`
	Status    SMSStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	SentBy    string    `json:"sentBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recipient is a name and a phone number to text.
type Recipient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// RecipientFilter selects SMS recipients from the roster.
// MokjangID and MinistryID are ANDed when both are set.
type RecipientFilter struct {
	MokjangID      string
	MinistryID     string
	IncludeParents bool
}

// NormalizePhone strips everything but digits.
func NormalizePhone(p string) string {
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SelectRecipients picks students matching f that have a phone number, optionally adding
// parent numbers. Numbers are deduplicated after normalisation and results sorted by name.
func SelectRecipients(students []Student, ministries []Ministry, f RecipientFilter) []Recipient {
	var ministry *Ministry
	if f.MinistryID != "" {
		for i := range ministries {
			if ministries[i].ID == f.MinistryID {
				ministry = &ministries[i]
				break
			}
		}
		if ministry == nil {
			return nil
		}
	}

	seen := make(map[string]struct{})
	var out []Recipient
	add := func(name, phone string) {
		n := NormalizePhone(phone)
		if n == "" {
			return
		}
		if _, dup := seen[n]; dup {
			return
		}
		seen[n] = struct{}{}
		out = append(out, Recipient{Name: name, Phone: n})
	}

	for _, s := range students {
		if f.MokjangID != "" && s.MokjangID != f.MokjangID {
			continue
		}
		if ministry != nil && !ministry.HasMember(MemberStudent, s.ID) {
			continue
		}
		add(s.Name, s.Phone)
		if f.IncludeParents {
			add(s.Name+" (parent)", s.ParentPhone)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
