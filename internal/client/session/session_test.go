package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/client/cache"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

// fakeAuthAPI keeps one logged-in user, or none, and counts GETs per path.
type fakeAuthAPI struct {
	mu       sync.Mutex
	user     *domain.SessionUser
	reads    map[string]int
	failUser bool
	block    chan struct{}
}

func (f *fakeAuthAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodGet {
		f.reads[r.URL.Path]++
	}
	switch r.Method + " " + r.URL.Path {
	case "GET /api/user":
		if f.block != nil {
			f.mu.Unlock()
			<-f.block
			f.mu.Lock()
		}
		switch {
		case f.failUser:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		case f.user == nil:
			w.WriteHeader(http.StatusUnauthorized)
		default:
			writeJSON(w, http.StatusOK, f.user)
		}
	case "GET /api/students":
		writeJSON(w, http.StatusOK, []string{"Mina"})
	case "POST /api/login":
		var in struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
			return
		}
		f.user = &domain.SessionUser{ID: "u1", Email: in.Email, Role: domain.RoleTeacher,
			Teacher: &domain.TeacherProfile{ID: "t1", Name: "Kim", Status: domain.ApprovalApproved}}
		writeJSON(w, http.StatusOK, f.user)
	case "POST /api/register":
		var in RegisterInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.user = &domain.SessionUser{ID: "u2", Email: in.Email, Role: domain.RoleTeacher,
			Teacher: &domain.TeacherProfile{ID: "t2", Name: in.Name, Status: domain.ApprovalPending}}
		writeJSON(w, http.StatusOK, f.user)
	case "POST /api/logout":
		f.user = nil
		writeJSON(w, http.StatusOK, map[string]string{})
	case "POST /api/change-password":
		var in struct {
			NewPassword string `json:"newPassword"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if len(in.NewPassword) < domain.MinPasswordLength {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password too short"})
			return
		}
		f.user.MustChangePassword = false
		writeJSON(w, http.StatusOK, f.user)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAuthAPI) readsOf(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[path]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T) (*Provider, *cache.Cache, *fakeAuthAPI) {
	t.Helper()
	api := &fakeAuthAPI{reads: make(map[string]int)}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c := cache.New(srv.URL, srv.Client())
	return New(c, zerolog.Nop()), c, api
}

func TestCurrent_NotLoggedInIsNotAnError(t *testing.T) {
	p, _, _ := newTestProvider(t)
	st := p.Current(context.Background())
	if st.User != nil || st.Err != nil || st.Loading {
		t.Fatalf("expected empty session, got %+v", st)
	}
}

func TestCurrent_OtherFailuresAreErrors(t *testing.T) {
	p, _, api := newTestProvider(t)
	api.failUser = true
	st := p.Current(context.Background())
	if st.Err == nil || cache.StatusOf(st.Err) != http.StatusInternalServerError {
		t.Fatalf("expected 500 error, got %+v", st)
	}
	if st.User != nil {
		t.Fatalf("no user on error")
	}
}

func TestCurrent_ReportsLoadingWhenDeadlinePasses(t *testing.T) {
	p, _, api := newTestProvider(t)
	api.block = make(chan struct{})
	defer close(api.block)

	if st := p.Snapshot(); !st.Loading {
		t.Fatalf("expected Loading before the first fetch, got %+v", st)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if st := p.Current(ctx); !st.Loading {
		t.Fatalf("expected Loading, got %+v", st)
	}
}

func TestLogin_StoresUserWithoutRefetch(t *testing.T) {
	p, _, api := newTestProvider(t)
	ctx := context.Background()

	_ = p.Current(ctx)
	u, err := p.Login(ctx, "kim@church.org", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Role != domain.RoleTeacher {
		t.Fatalf("unexpected user %+v", u)
	}

	st := p.Current(ctx)
	if st.User == nil || st.User.ID != "u1" {
		t.Fatalf("expected logged-in user, got %+v", st)
	}
	if n := api.readsOf(UserKey); n != 1 {
		t.Fatalf("login must not trigger a refetch, got %d reads", n)
	}
}

func TestLogin_FailureLeavesCachedUser(t *testing.T) {
	p, _, _ := newTestProvider(t)
	ctx := context.Background()

	_ = p.Current(ctx)
	_, err := p.Login(ctx, "kim@church.org", "wrong")
	if err == nil {
		t.Fatalf("expected error")
	}
	if Message(err) != "invalid email or password" {
		t.Fatalf("unexpected message %q", Message(err))
	}
	if st := p.Snapshot(); st.User != nil || st.Loading {
		t.Fatalf("cached user must be untouched, got %+v", st)
	}
}

func TestRegister_MakesPendingUserCurrent(t *testing.T) {
	p, _, _ := newTestProvider(t)
	u, err := p.Register(context.Background(), RegisterInput{Email: "new@church.org", Password: "secret123", Name: "Lee"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !u.PendingApproval() {
		t.Fatalf("expected pending profile")
	}
	if st := p.Snapshot(); st.User == nil || !st.User.PendingApproval() {
		t.Fatalf("expected registered user to be current, got %+v", st)
	}
}

func TestLogout_ClearsEveryEntry(t *testing.T) {
	p, c, api := newTestProvider(t)
	ctx := context.Background()

	if _, err := p.Login(ctx, "kim@church.org", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := c.Fetch(ctx, "/api/students"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := p.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}

	_, _ = c.Fetch(ctx, "/api/students")
	if n := api.readsOf("/api/students"); n != 2 {
		t.Fatalf("expected a fresh read after logout, got %d", n)
	}
	if st := p.Current(ctx); st.User != nil || st.Err != nil {
		t.Fatalf("expected no session after logout, got %+v", st)
	}
}

func TestChangePassword_ClearsFlag(t *testing.T) {
	p, _, api := newTestProvider(t)
	ctx := context.Background()
	api.user = &domain.SessionUser{ID: "a1", Email: "admin@church.org", Role: domain.RoleAdmin, MustChangePassword: true}

	if st := p.Current(ctx); st.User == nil || !st.User.MustChangePassword {
		t.Fatalf("expected flagged admin, got %+v", st)
	}
	if _, err := p.ChangePassword(ctx, "abc", ""); err == nil {
		t.Fatalf("expected server-side rejection")
	}
	if st := p.Snapshot(); !st.User.MustChangePassword {
		t.Fatalf("failed change must not touch the cached user")
	}

	u, err := p.ChangePassword(ctx, "newpass1", "")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if u.MustChangePassword {
		t.Fatalf("expected flag cleared in response")
	}
	if st := p.Snapshot(); st.User.MustChangePassword {
		t.Fatalf("expected flag cleared in cache")
	}
}

func TestRefresh_RefetchesUser(t *testing.T) {
	p, _, api := newTestProvider(t)
	ctx := context.Background()

	_ = p.Current(ctx)
	api.mu.Lock()
	api.user = &domain.SessionUser{ID: "u9", Role: domain.RoleTeacher}
	api.mu.Unlock()

	if st := p.Refresh(ctx); st.User == nil || st.User.ID != "u9" {
		t.Fatalf("expected refreshed user, got %+v", st)
	}
	if n := api.readsOf(UserKey); n != 2 {
		t.Fatalf("expected 2 reads, got %d", n)
	}
}
