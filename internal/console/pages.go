package console

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/mokjang/youth-admin/internal/client/cache"
	"github.com/mokjang/youth-admin/internal/client/session"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

const (
	studentsKey   = "/api/students"
	mokjangsKey   = "/api/mokjangs"
	teachersKey   = "/api/teachers"
	ministriesKey = "/api/ministries"
	attendanceKey = "/api/attendance"
	smsKey        = "/api/sms"
)

// longAbsenceWindow is how many weeks back /long-absence reads.
const longAbsenceWindow = 26

// fetchInto schedules a cached read of key into dst on g.
func fetchInto[T any](ctx context.Context, g *errgroup.Group, ws *Workspace, key string, dst *T) {
	g.Go(func() error {
		v, err := cache.Get[T](ctx, ws.Cache, key)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

// write sends a form's mutation. API rejections become a flash message on the
// page the form came from; a 401 goes to the error handler.
func (s *Server) write(c echo.Context, ws *Workspace, fallback, method, path string, body any, opts ...cache.MutateOption) error {
	if _, err := ws.Cache.Mutate(c.Request().Context(), method, path, body, opts...); err != nil {
		if cache.StatusOf(err) == http.StatusUnauthorized {
			return err
		}
		ws.Flash(session.Message(err))
	}
	return back(c, fallback)
}

// formFields copies the named form values into a request body. With
// keepEmpty, fields submitted blank are sent so the API clears them.
func formFields(c echo.Context, keepEmpty bool, names ...string) map[string]any {
	params, _ := c.FormParams()
	body := make(map[string]any, len(names))
	for _, name := range names {
		vals, ok := params[name]
		if !ok {
			continue
		}
		v := strings.TrimSpace(vals[0])
		if v == "" && !keepEmpty {
			continue
		}
		body[name] = v
	}
	return body
}

func weekParam(c echo.Context, fallback string) string {
	if w, err := domain.NormalizeWeek(c.QueryParam("week")); err == nil {
		return w
	}
	return fallback
}

func weekKey(from, to string) string {
	return cache.Key(attendanceKey, url.Values{"from": {from}, "to": {to}})
}

type weekData struct {
	Week       string
	MokjangID  string
	OnlyAbsent bool
	Mokjangs   []domain.Mokjang
	Rows       []domain.AttendanceRow
	Summary    domain.AttendanceSummary
}

func (s *Server) loadWeek(c echo.Context, ws *Workspace) (*weekData, error) {
	d := &weekData{
		Week:       weekParam(c, domain.WeekOf(s.now())),
		MokjangID:  c.QueryParam("mokjang"),
		OnlyAbsent: c.QueryParam("absent") == "1",
	}
	var (
		students []domain.Student
		records  []domain.Attendance
	)
	g, ctx := errgroup.WithContext(c.Request().Context())
	fetchInto(ctx, g, ws, studentsKey, &students)
	fetchInto(ctx, g, ws, mokjangsKey, &d.Mokjangs)
	fetchInto(ctx, g, ws, weekKey(d.Week, d.Week), &records)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.Rows = domain.FilterAttendance(students, records, domain.AttendanceFilter{
		MokjangID:  d.MokjangID,
		Week:       d.Week,
		OnlyAbsent: d.OnlyAbsent,
	})
	d.Summary = domain.Summarize(d.Rows)
	return d, nil
}

func (s *Server) dashboard(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	d, err := s.loadWeek(c, ws)
	if err != nil {
		return err
	}
	return s.render(c, ws, u, http.StatusOK, "dashboard.html", "Dashboard", d, 0)
}

func (s *Server) attendance(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	d, err := s.loadWeek(c, ws)
	if err != nil {
		return err
	}
	return s.render(c, ws, u, http.StatusOK, "attendance.html", "Attendance", d, 0)
}

func (s *Server) markAttendance(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	body := map[string]any{
		"studentId": c.FormValue("studentId"),
		"week":      c.FormValue("week"),
		"present":   c.FormValue("present") == "true",
	}
	return s.write(c, ws, "/attendance", http.MethodPost, attendanceKey, body)
}

type longAbsenceData struct {
	Threshold int
	Rows      []domain.LongAbsence
	Mokjangs  map[string]string
}

func (s *Server) longAbsence(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	threshold, err := strconv.Atoi(c.QueryParam("weeks"))
	if err != nil || threshold < domain.MinLongAbsenceWeeks {
		threshold = s.cfg.LongAbsenceWeeks
	}
	now := s.now()
	from := domain.WeekOf(now.AddDate(0, 0, -7*longAbsenceWindow))

	var (
		students []domain.Student
		records  []domain.Attendance
		mokjangs []domain.Mokjang
	)
	g, ctx := errgroup.WithContext(c.Request().Context())
	fetchInto(ctx, g, ws, studentsKey, &students)
	fetchInto(ctx, g, ws, mokjangsKey, &mokjangs)
	fetchInto(ctx, g, ws, weekKey(from, domain.WeekOf(now)), &records)
	if err := g.Wait(); err != nil {
		return err
	}

	names := make(map[string]string, len(mokjangs))
	for _, m := range mokjangs {
		names[m.ID] = m.Name
	}
	d := longAbsenceData{
		Threshold: threshold,
		Rows:      domain.LongAbsentees(students, records, threshold),
		Mokjangs:  names,
	}
	return s.render(c, ws, u, http.StatusOK, "long_absence.html", "Long absence", d, 0)
}

var studentFields = []string{"name", "gender", "phone", "parentPhone", "birthday", "mokjangId", "notes"}

type studentsData struct {
	MokjangID string
	Students  []domain.Student
	Mokjangs  []domain.Mokjang
}

func (s *Server) students(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	d := studentsData{MokjangID: c.QueryParam("mokjang")}
	key := studentsKey
	if d.MokjangID != "" {
		key = cache.Key(studentsKey, url.Values{"mokjangId": {d.MokjangID}})
	}
	g, ctx := errgroup.WithContext(c.Request().Context())
	fetchInto(ctx, g, ws, key, &d.Students)
	fetchInto(ctx, g, ws, mokjangsKey, &d.Mokjangs)
	if err := g.Wait(); err != nil {
		return err
	}
	return s.render(c, ws, u, http.StatusOK, "students.html", "Students", d, 0)
}

func studentBody(c echo.Context, keepEmpty bool) map[string]any {
	body := formFields(c, keepEmpty, studentFields...)
	if grade, err := strconv.Atoi(c.FormValue("grade")); err == nil {
		body["grade"] = grade
	}
	return body
}

func (s *Server) createStudent(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	return s.write(c, ws, "/students", http.MethodPost, studentsKey, studentBody(c, false))
}

func (s *Server) updateStudent(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := studentsKey + "/" + url.PathEscape(c.Param("id"))
	return s.write(c, ws, "/students", http.MethodPatch, path, studentBody(c, true))
}

// deleteStudent also drops the student's attendance marks and ministry
// memberships on the server, so both lists are refetched.
func (s *Server) deleteStudent(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := studentsKey + "/" + url.PathEscape(c.Param("id"))
	return s.write(c, ws, "/students", http.MethodDelete, path, nil,
		cache.AlsoInvalidate(attendanceKey, ministriesKey))
}

type mokjangsData struct {
	Mokjangs []domain.Mokjang
	Teachers map[string]string
	Members  map[string]int
	Options  []domain.Teacher
}

func (s *Server) mokjangs(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	var (
		mokjangs []domain.Mokjang
		teachers []domain.Teacher
		students []domain.Student
	)
	g, ctx := errgroup.WithContext(c.Request().Context())
	fetchInto(ctx, g, ws, mokjangsKey, &mokjangs)
	fetchInto(ctx, g, ws, teachersKey, &teachers)
	fetchInto(ctx, g, ws, studentsKey, &students)
	if err := g.Wait(); err != nil {
		return err
	}

	d := mokjangsData{
		Mokjangs: mokjangs,
		Teachers: make(map[string]string, len(teachers)),
		Members:  make(map[string]int, len(mokjangs)),
		Options:  teachers,
	}
	for _, t := range teachers {
		d.Teachers[t.ID] = t.Name
	}
	for _, st := range students {
		if st.MokjangID != "" {
			d.Members[st.MokjangID]++
		}
	}
	return s.render(c, ws, u, http.StatusOK, "mokjangs.html", "Mokjangs", d, 0)
}

func (s *Server) createMokjang(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	return s.write(c, ws, "/mokjangs", http.MethodPost, mokjangsKey, formFields(c, false, "name", "teacherId"))
}

// deleteMokjang leaves the group's students unassigned.
func (s *Server) deleteMokjang(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := mokjangsKey + "/" + url.PathEscape(c.Param("id"))
	return s.write(c, ws, "/mokjangs", http.MethodDelete, path, nil, cache.AlsoInvalidate(studentsKey))
}

type ministriesData struct {
	Ministries []domain.Ministry
	Students   []domain.Student
	Teachers   []domain.Teacher
	Names      map[string]string
}

func (s *Server) ministries(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	var d ministriesData
	g, ctx := errgroup.WithContext(c.Request().Context())
	fetchInto(ctx, g, ws, ministriesKey, &d.Ministries)
	fetchInto(ctx, g, ws, studentsKey, &d.Students)
	fetchInto(ctx, g, ws, teachersKey, &d.Teachers)
	if err := g.Wait(); err != nil {
		return err
	}
	d.Names = make(map[string]string, len(d.Students)+len(d.Teachers))
	for _, st := range d.Students {
		d.Names[st.ID] = st.Name
	}
	for _, t := range d.Teachers {
		d.Names[t.ID] = t.Name
	}
	return s.render(c, ws, u, http.StatusOK, "ministries.html", "Ministries", d, 0)
}

func (s *Server) createMinistry(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	return s.write(c, ws, "/ministries", http.MethodPost, ministriesKey, formFields(c, false, "name", "description"))
}

func (s *Server) deleteMinistry(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := ministriesKey + "/" + url.PathEscape(c.Param("id"))
	return s.write(c, ws, "/ministries", http.MethodDelete, path, nil)
}

func (s *Server) addMinistryMember(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := ministriesKey + "/" + url.PathEscape(c.Param("id")) + "/members"
	return s.write(c, ws, "/ministries", http.MethodPost, path, formFields(c, false, "kind", "memberId"))
}

func (s *Server) removeMinistryMember(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := ministriesKey + "/" + url.PathEscape(c.Param("id")) +
		"/members/" + url.PathEscape(c.Param("kind")) + "/" + url.PathEscape(c.Param("memberId"))
	return s.write(c, ws, "/ministries", http.MethodDelete, path, nil)
}

func (s *Server) teachers(c echo.Context, ws *Workspace, u *domain.SessionUser) error {
	teachers, err := cache.Get[[]domain.Teacher](c.Request().Context(), ws.Cache, teachersKey)
	if err != nil {
		return err
	}
	return s.render(c, ws, u, http.StatusOK, "teachers.html", "Teachers", teachers, 0)
}

// createTeacher opens an approved account whose holder must change the
// temporary password at first sign-in.
func (s *Server) createTeacher(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	body := formFields(c, false, "email", "temporaryPassword", "name", "phone")
	return s.write(c, ws, "/teachers", http.MethodPost, teachersKey, body)
}

func (s *Server) approveTeacher(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := teachersKey + "/" + url.PathEscape(c.Param("id"))
	body := map[string]any{"status": domain.ApprovalApproved.String()}
	return s.write(c, ws, "/teachers", http.MethodPatch, path, body)
}

// deleteTeacher also unlinks the teacher from mokjangs and ministries.
func (s *Server) deleteTeacher(c echo.Context, ws *Workspace, _ *domain.SessionUser) error {
	path := teachersKey + "/" + url.PathEscape(c.Param("id"))
	return s.write(c, ws, "/teachers", http.MethodDelete, path, nil,
		cache.AlsoInvalidate(mokjangsKey, ministriesKey))
}
