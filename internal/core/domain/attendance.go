package domain

import (
	"fmt"
	"sort"
	"time"
)

const weekLayout = "2006-01-02"

// MinLongAbsenceWeeks is the smallest streak that counts as a long absence.
const MinLongAbsenceWeeks = 2

// Attendance is one student's mark for one tracked week.
type Attendance struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	Week       string    `json:"week"`
	Present    bool      `json:"present"`
	RecordedBy string    `json:"recordedBy,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// WeekOf returns the Sunday starting the week containing t, as YYYY-MM-DD.
func WeekOf(t time.Time) string {
	t = t.UTC()
	start := t.AddDate(0, 0, -int(t.Weekday()))
	return start.Format(weekLayout)
}

// NormalizeWeek parses a date and snaps it to its week start.
func NormalizeWeek(s string) (string, error) {
	t, err := time.Parse(weekLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: week %q", ErrInvalidInput, s)
	}
	return WeekOf(t), nil
}

// AttendanceFilter narrows the dashboard table. Empty fields match everything.
type AttendanceFilter struct {
	MokjangID  string
	Week       string
	OnlyAbsent bool
}

// AttendanceRow is one line of the attendance dashboard.
type AttendanceRow struct {
	Student  Student
	Recorded bool
	Present  bool
}

// AttendanceSummary counts the rows of a filtered week.
type AttendanceSummary struct {
	Total      int
	Present    int
	Absent     int
	Unrecorded int
}

// FilterAttendance joins students with their mark for f.Week and applies f.
// Rows are ordered by student name.
func FilterAttendance(students []Student, records []Attendance, f AttendanceFilter) []AttendanceRow {
	marks := make(map[string]bool)
	for _, r := range records {
		if r.Week == f.Week {
			marks[r.StudentID] = r.Present
		}
	}

	rows := make([]AttendanceRow, 0, len(students))
	for _, s := range students {
		if f.MokjangID != "" && s.MokjangID != f.MokjangID {
			continue
		}
		present, recorded := marks[s.ID]
		if f.OnlyAbsent && present {
			continue
		}
		rows = append(rows, AttendanceRow{Student: s, Recorded: recorded, Present: present})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Student.Name < rows[j].Student.Name })
	return rows
}

func Summarize(rows []AttendanceRow) AttendanceSummary {
	sum := AttendanceSummary{Total: len(rows)}
	for _, r := range rows {
		switch {
		case !r.Recorded:
			sum.Unrecorded++
		case r.Present:
			sum.Present++
		default:
			sum.Absent++
		}
	}
	return sum
}

// TrackedWeeks returns the distinct weeks that have at least one record, oldest first.
func TrackedWeeks(records []Attendance) []string {
	seen := make(map[string]struct{})
	weeks := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Week]; ok {
			continue
		}
		seen[r.Week] = struct{}{}
		weeks = append(weeks, r.Week)
	}
	sort.Strings(weeks)
	return weeks
}

// LongAbsence describes a student whose latest tracked weeks have no presence.
type LongAbsence struct {
	Student     Student
	WeeksAbsent int
	LastPresent string // empty when never present in the tracked range
}

// LongAbsentees counts, per student, the trailing run of tracked weeks without a
// present mark and keeps those with a run of at least threshold weeks.
// threshold is raised to MinLongAbsenceWeeks. Longest runs come first.
func LongAbsentees(students []Student, records []Attendance, threshold int) []LongAbsence {
	if threshold < MinLongAbsenceWeeks {
		threshold = MinLongAbsenceWeeks
	}
	weeks := TrackedWeeks(records)
	if len(weeks) < threshold {
		return nil
	}

	present := make(map[string]map[string]bool, len(students))
	for _, r := range records {
		if !r.Present {
			continue
		}
		if present[r.StudentID] == nil {
			present[r.StudentID] = make(map[string]bool)
		}
		present[r.StudentID][r.Week] = true
	}

	var out []LongAbsence
	for _, s := range students {
		run := 0
		last := ""
		for i := len(weeks) - 1; i >= 0; i-- {
			if present[s.ID][weeks[i]] {
				last = weeks[i]
				break
			}
			run++
		}
		if run >= threshold {
			out = append(out, LongAbsence{Student: s, WeeksAbsent: run, LastPresent: last})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WeeksAbsent != out[j].WeeksAbsent {
			return out[i].WeeksAbsent > out[j].WeeksAbsent
		}
		return out[i].Student.Name < out[j].Student.Name
	})
	return out
}
