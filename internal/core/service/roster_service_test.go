package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubStudentRepo struct {
	students map[string]*domain.Student
	seq      int
}

func newStubStudentRepo() *stubStudentRepo {
	return &stubStudentRepo{students: make(map[string]*domain.Student)}
}

func (r *stubStudentRepo) Create(_ context.Context, s *domain.Student) (*domain.Student, error) {
	r.seq++
	clone := *s
	clone.ID = fmt.Sprintf("s%d", r.seq)
	stored := clone
	r.students[clone.ID] = &stored
	return &clone, nil
}

func (r *stubStudentRepo) FindByID(_ context.Context, id string) (*domain.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubStudentRepo) List(_ context.Context, mokjangID string) ([]*domain.Student, error) {
	var out []*domain.Student
	for _, s := range r.students {
		if mokjangID != "" && s.MokjangID != mokjangID {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubStudentRepo) Update(_ context.Context, s *domain.Student) error {
	if _, ok := r.students[s.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *s
	r.students[s.ID] = &clone
	return nil
}

func (r *stubStudentRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.students[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.students, id)
	return nil
}

func (r *stubStudentRepo) UnassignMokjang(_ context.Context, mokjangID string) error {
	for _, s := range r.students {
		if s.MokjangID == mokjangID {
			s.MokjangID = ""
		}
	}
	return nil
}

type stubMokjangRepo struct {
	groups map[string]*domain.Mokjang
	seq    int
}

func newStubMokjangRepo() *stubMokjangRepo {
	return &stubMokjangRepo{groups: make(map[string]*domain.Mokjang)}
}

func (r *stubMokjangRepo) Create(_ context.Context, m *domain.Mokjang) (*domain.Mokjang, error) {
	r.seq++
	clone := *m
	clone.ID = fmt.Sprintf("m%d", r.seq)
	stored := clone
	r.groups[clone.ID] = &stored
	return &clone, nil
}

func (r *stubMokjangRepo) FindByID(_ context.Context, id string) (*domain.Mokjang, error) {
	m, ok := r.groups[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *stubMokjangRepo) List(_ context.Context) ([]*domain.Mokjang, error) {
	var out []*domain.Mokjang
	for _, m := range r.groups {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubMokjangRepo) Update(_ context.Context, m *domain.Mokjang) error {
	clone := *m
	r.groups[m.ID] = &clone
	return nil
}

func (r *stubMokjangRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.groups[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

type stubAttendanceRepo struct {
	marks map[string]*domain.Attendance // key: student|week
}

func newStubAttendanceRepo() *stubAttendanceRepo {
	return &stubAttendanceRepo{marks: make(map[string]*domain.Attendance)}
}

func (r *stubAttendanceRepo) Upsert(_ context.Context, a *domain.Attendance) (*domain.Attendance, error) {
	key := a.StudentID + "|" + a.Week
	clone := *a
	if prev, ok := r.marks[key]; ok {
		clone.ID = prev.ID
	} else {
		clone.ID = fmt.Sprintf("a%d", len(r.marks)+1)
	}
	stored := clone
	r.marks[key] = &stored
	return &clone, nil
}

func (r *stubAttendanceRepo) List(_ context.Context, from, to string) ([]*domain.Attendance, error) {
	var out []*domain.Attendance
	for _, a := range r.marks {
		if (from == "" || a.Week >= from) && (to == "" || a.Week <= to) {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubAttendanceRepo) Delete(_ context.Context, id string) error {
	for k, a := range r.marks {
		if a.ID == id {
			delete(r.marks, k)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *stubAttendanceRepo) DeleteByStudent(_ context.Context, studentID string) error {
	for k, a := range r.marks {
		if a.StudentID == studentID {
			delete(r.marks, k)
		}
	}
	return nil
}

type stubMinistryRepo struct {
	ministries map[string]*domain.Ministry
	seq        int
}

func newStubMinistryRepo() *stubMinistryRepo {
	return &stubMinistryRepo{ministries: make(map[string]*domain.Ministry)}
}

func (r *stubMinistryRepo) Create(_ context.Context, m *domain.Ministry) (*domain.Ministry, error) {
	r.seq++
	clone := *m
	clone.ID = fmt.Sprintf("min%d", r.seq)
	stored := clone
	r.ministries[clone.ID] = &stored
	return &clone, nil
}

func (r *stubMinistryRepo) FindByID(_ context.Context, id string) (*domain.Ministry, error) {
	m, ok := r.ministries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *m
	clone.StudentIDs = append([]string(nil), m.StudentIDs...)
	clone.TeacherIDs = append([]string(nil), m.TeacherIDs...)
	return &clone, nil
}

func (r *stubMinistryRepo) List(_ context.Context) ([]*domain.Ministry, error) {
	var out []*domain.Ministry
	for id := range r.ministries {
		m, _ := r.FindByID(context.Background(), id)
		out = append(out, m)
	}
	return out, nil
}

func (r *stubMinistryRepo) Update(_ context.Context, m *domain.Ministry) error {
	clone := *m
	r.ministries[m.ID] = &clone
	return nil
}

func (r *stubMinistryRepo) Delete(_ context.Context, id string) error {
	delete(r.ministries, id)
	return nil
}

func (r *stubMinistryRepo) AddMember(_ context.Context, id string, kind domain.MemberKind, memberID string) error {
	m, ok := r.ministries[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.HasMember(kind, memberID) {
		return nil
	}
	if kind == domain.MemberTeacher {
		m.TeacherIDs = append(m.TeacherIDs, memberID)
	} else {
		m.StudentIDs = append(m.StudentIDs, memberID)
	}
	return nil
}

func (r *stubMinistryRepo) RemoveMember(_ context.Context, id string, kind domain.MemberKind, memberID string) error {
	m, ok := r.ministries[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.StudentIDs, m.TeacherIDs = without(m.StudentIDs, kind == domain.MemberStudent, memberID), without(m.TeacherIDs, kind == domain.MemberTeacher, memberID)
	return nil
}

func (r *stubMinistryRepo) RemoveMemberEverywhere(ctx context.Context, kind domain.MemberKind, memberID string) error {
	for id := range r.ministries {
		_ = r.RemoveMember(ctx, id, kind, memberID)
	}
	return nil
}

func without(ids []string, apply bool, id string) []string {
	if !apply {
		return ids
	}
	out := []string{}
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type stubSMSLog struct {
	inserted []*domain.SMSMessage
	statuses map[string]domain.SMSStatus
}

func (l *stubSMSLog) InsertMany(_ context.Context, msgs []*domain.SMSMessage) error {
	l.inserted = append(l.inserted, msgs...)
	return nil
}

func (l *stubSMSLog) UpdateStatus(_ context.Context, id string, status domain.SMSStatus, _ string) error {
	if l.statuses == nil {
		l.statuses = make(map[string]domain.SMSStatus)
	}
	l.statuses[id] = status
	return nil
}

func (l *stubSMSLog) List(_ context.Context, limit int) ([]*domain.SMSMessage, error) {
	if limit < len(l.inserted) {
		return l.inserted[:limit], nil
	}
	return l.inserted, nil
}

type stubSender struct {
	err  error
	sent []string
}

func (s *stubSender) Send(_ context.Context, phone, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, phone)
	return nil
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Teachers
// ---------------------------------------------------------------------------

func TestTeacherService_CreateAndDeleteCascade(t *testing.T) {
	ctx := context.Background()
	users, teachers, groups, ministries := newStubUserRepo(), newStubTeacherRepo(), newStubMokjangRepo(), newStubMinistryRepo()
	svc := NewTeacherService(users, teachers, groups, ministries, zerolog.Nop())

	teacher, err := svc.Create(ctx, ports.CreateTeacherInput{Email: "lee@church.org", TemporaryPassword: "temp123", Name: "Lee"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if teacher.Status != domain.ApprovalApproved {
		t.Fatalf("admin-created teachers start approved, got %s", teacher.Status)
	}
	account, _ := users.FindByID(ctx, teacher.UserID)
	if !account.MustChangePassword {
		t.Fatalf("expected temporary password to be flagged")
	}

	g, _ := groups.Create(ctx, &domain.Mokjang{Name: "Joy", TeacherID: teacher.ID})
	worship, _ := ministries.Create(ctx, &domain.Ministry{Name: "Worship", TeacherIDs: []string{teacher.ID}})

	if err := svc.Delete(ctx, teacher.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := users.FindByID(ctx, teacher.UserID); err != domain.ErrUserNotFound {
		t.Fatalf("expected account removed, got %v", err)
	}
	if got, _ := groups.FindByID(ctx, g.ID); got.TeacherID != "" {
		t.Fatalf("expected mokjang leader cleared, got %q", got.TeacherID)
	}
	if got, _ := ministries.FindByID(ctx, worship.ID); len(got.TeacherIDs) != 0 {
		t.Fatalf("expected teacher removed from ministry, got %v", got.TeacherIDs)
	}
}

func TestTeacherService_UpdateApproval(t *testing.T) {
	ctx := context.Background()
	teachers := newStubTeacherRepo()
	svc := NewTeacherService(newStubUserRepo(), teachers, newStubMokjangRepo(), newStubMinistryRepo(), zerolog.Nop())

	pending, _ := teachers.Create(ctx, &domain.Teacher{UserID: "u1", Name: "Park", Status: domain.ApprovalPending})
	approved := domain.ApprovalApproved
	got, err := svc.Update(ctx, pending.ID, ports.UpdateTeacherInput{Status: &approved, Phone: strPtr(" 010 ")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != domain.ApprovalApproved || got.Phone != "010" {
		t.Fatalf("unexpected teacher: %+v", got)
	}

	if _, err := svc.Update(ctx, pending.ID, ports.UpdateTeacherInput{Name: strPtr("  ")}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Students / Mokjangs
// ---------------------------------------------------------------------------

func TestStudentService_CreateValidatesMokjang(t *testing.T) {
	ctx := context.Background()
	groups := newStubMokjangRepo()
	svc := NewStudentService(newStubStudentRepo(), groups, newStubAttendanceRepo(), newStubMinistryRepo(), zerolog.Nop())

	if _, err := svc.Create(ctx, ports.StudentInput{Name: strPtr("Mina"), MokjangID: strPtr("missing")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown mokjang, got %v", err)
	}

	g, _ := groups.Create(ctx, &domain.Mokjang{Name: "Joy"})
	grade := 9
	st, err := svc.Create(ctx, ports.StudentInput{Name: strPtr(" Mina "), MokjangID: &g.ID, Grade: &grade})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if st.Name != "Mina" || st.MokjangID != g.ID || st.Grade != 9 {
		t.Fatalf("unexpected student: %+v", st)
	}

	bad := 13
	if _, err := svc.Update(ctx, st.ID, ports.StudentInput{Grade: &bad}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for grade, got %v", err)
	}
	if _, err := svc.Create(ctx, ports.StudentInput{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without name, got %v", err)
	}
}

func TestStudentService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	students, marks, ministries := newStubStudentRepo(), newStubAttendanceRepo(), newStubMinistryRepo()
	svc := NewStudentService(students, newStubMokjangRepo(), marks, ministries, zerolog.Nop())

	st, _ := students.Create(ctx, &domain.Student{Name: "Jun"})
	_, _ = marks.Upsert(ctx, &domain.Attendance{StudentID: st.ID, Week: "2026-10-11", Present: true})
	media, _ := ministries.Create(ctx, &domain.Ministry{Name: "Media", StudentIDs: []string{st.ID}})

	if err := svc.Delete(ctx, st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(marks.marks) != 0 {
		t.Fatalf("expected attendance removed")
	}
	if got, _ := ministries.FindByID(ctx, media.ID); len(got.StudentIDs) != 0 {
		t.Fatalf("expected ministry membership removed, got %v", got.StudentIDs)
	}
}

func TestMokjangService_DeleteUnassignsStudents(t *testing.T) {
	ctx := context.Background()
	groups, students, teachers := newStubMokjangRepo(), newStubStudentRepo(), newStubTeacherRepo()
	svc := NewMokjangService(groups, teachers, students)

	if _, err := svc.Create(ctx, ports.MokjangInput{Name: strPtr("Hope"), TeacherID: strPtr("ghost")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown teacher, got %v", err)
	}

	g, err := svc.Create(ctx, ports.MokjangInput{Name: strPtr("Hope")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	st, _ := students.Create(ctx, &domain.Student{Name: "Hana", MokjangID: g.ID})

	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := students.FindByID(ctx, st.ID); got.MokjangID != "" {
		t.Fatalf("expected student unassigned, got %q", got.MokjangID)
	}
}

// ---------------------------------------------------------------------------
// Attendance
// ---------------------------------------------------------------------------

func TestAttendanceService_MarkNormalisesWeekAndUpserts(t *testing.T) {
	ctx := context.Background()
	students, marks := newStubStudentRepo(), newStubAttendanceRepo()
	svc := NewAttendanceService(marks, students)
	st, _ := students.Create(ctx, &domain.Student{Name: "Mina"})

	first, err := svc.Mark(ctx, ports.MarkAttendanceInput{StudentID: st.ID, Week: "2026-10-14", Present: false})
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if first.Week != "2026-10-11" {
		t.Fatalf("expected week snapped to Sunday, got %s", first.Week)
	}
	second, err := svc.Mark(ctx, ports.MarkAttendanceInput{StudentID: st.ID, Week: "2026-10-11", Present: true})
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if second.ID != first.ID || len(marks.marks) != 1 {
		t.Fatalf("expected upsert of the same record")
	}

	if _, err := svc.Mark(ctx, ports.MarkAttendanceInput{StudentID: "ghost", Week: "2026-10-11"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown student, got %v", err)
	}
	if _, err := svc.List(ctx, "bad", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad bound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Ministries
// ---------------------------------------------------------------------------

func TestMinistryService_Members(t *testing.T) {
	ctx := context.Background()
	ministries, students, teachers := newStubMinistryRepo(), newStubStudentRepo(), newStubTeacherRepo()
	svc := NewMinistryService(ministries, students, teachers)

	m, err := svc.Create(ctx, ports.MinistryInput{Name: strPtr("Worship")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	st, _ := students.Create(ctx, &domain.Student{Name: "Bora"})

	got, err := svc.AddMember(ctx, m.ID, domain.MemberStudent, st.ID)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := svc.AddMember(ctx, m.ID, domain.MemberStudent, st.ID); err != nil {
		t.Fatalf("adding twice should be idempotent: %v", err)
	}
	if len(got.StudentIDs) != 1 {
		t.Fatalf("expected one student member, got %v", got.StudentIDs)
	}
	if _, err := svc.AddMember(ctx, m.ID, domain.MemberTeacher, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown teacher, got %v", err)
	}
	if _, err := svc.AddMember(ctx, m.ID, "parent", st.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad kind, got %v", err)
	}

	got, err = svc.RemoveMember(ctx, m.ID, domain.MemberStudent, st.ID)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if len(got.StudentIDs) != 0 {
		t.Fatalf("expected no members, got %v", got.StudentIDs)
	}
}

// ---------------------------------------------------------------------------
// SMS
// ---------------------------------------------------------------------------

func TestSMSService_QueueDedupesAndDeliver(t *testing.T) {
	ctx := context.Background()
	log, sender := &stubSMSLog{}, &stubSender{}
	svc := NewSMSService(log, sender, zerolog.Nop())

	res, err := svc.Queue(ctx, ports.SendSMSInput{
		Recipients: []domain.Recipient{
			{Name: "Mina", Phone: "010-1111-2222"},
			{Name: "Mina again", Phone: "01011112222"},
			{Name: "No phone", Phone: ""},
			{Name: "Jun", Phone: "010 3333 4444"},
		},
		Message: "Retreat this Saturday",
		SentBy:  "u1",
	})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(res.Messages) != 2 || len(log.inserted) != 2 {
		t.Fatalf("expected 2 queued messages, got %d", len(res.Messages))
	}
	for _, m := range res.Messages {
		if m.Status != domain.SMSQueued || m.BatchID != res.BatchID {
			t.Fatalf("unexpected message: %+v", m)
		}
	}

	if err := svc.Deliver(ctx, res.Messages[0]); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if log.statuses[res.Messages[0].ID] != domain.SMSSent {
		t.Fatalf("expected sent status")
	}

	sender.err = errors.New("gateway down")
	if err := svc.Deliver(ctx, res.Messages[1]); err == nil {
		t.Fatalf("expected delivery error")
	}
	if log.statuses[res.Messages[1].ID] != domain.SMSFailed {
		t.Fatalf("expected failed status")
	}
}

func TestSMSService_AbandonMarksFailed(t *testing.T) {
	log := &stubSMSLog{}
	svc := NewSMSService(log, &stubSender{}, zerolog.Nop())

	svc.Abandon(context.Background(), &domain.SMSMessage{ID: "m1"}, "dispatcher stopped")
	if log.statuses["m1"] != domain.SMSFailed {
		t.Fatalf("expected failed status, got %q", log.statuses["m1"])
	}
}

func TestSMSService_QueueValidation(t *testing.T) {
	svc := NewSMSService(&stubSMSLog{}, &stubSender{}, zerolog.Nop())

	cases := map[string]ports.SendSMSInput{
		"empty message": {Recipients: []domain.Recipient{{Phone: "010"}}, Message: "  "},
		"no recipients": {Message: "hi"},
		"no phones":     {Recipients: []domain.Recipient{{Name: "x"}}, Message: "hi"},
	}
	for name, in := range cases {
		if _, err := svc.Queue(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}
