package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test API
// ---------------------------------------------------------------------------

// fakeAPI serves a versioned student list and counts reads per request URI.
type fakeAPI struct {
	mu      sync.Mutex
	reads   map[string]int
	version int64
	gate    chan struct{} // when non-nil, GETs block until it is closed
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{reads: make(map[string]int)}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		f.reads[r.URL.RequestURI()]++
		gate := f.gate
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		switch r.URL.Path {
		case "/api/user":
			w.WriteHeader(http.StatusUnauthorized)
			return
		case "/api/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"database unavailable"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int64{"version": atomic.LoadInt64(&f.version)})
	default:
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"name is required"}`))
			return
		}
		atomic.AddInt64(&f.version, 1)
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeAPI) readsOf(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[uri]
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), opts...), api
}

func versionOf(t *testing.T, raw json.RawMessage) int64 {
	t.Helper()
	var v struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v.Version
}

// ---------------------------------------------------------------------------
// Fetch
// ---------------------------------------------------------------------------

func TestFetch_ServesFreshEntryFromMemory(t *testing.T) {
	c, api := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(ctx, "/api/mokjangs"); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if n := api.readsOf("/api/mokjangs"); n != 1 {
		t.Fatalf("expected 1 network read, got %d", n)
	}
}

func TestFetch_CoalescesConcurrentReads(t *testing.T) {
	c, api := newTestCache(t)
	api.gate = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]json.RawMessage, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Fetch(context.Background(), "/api/mokjangs")
		}(i)
	}

	waitFor(t, func() bool { return api.readsOf("/api/mokjangs") == 1 })
	if !c.Status("/api/mokjangs").Fetching {
		t.Fatalf("expected key to report fetching")
	}
	time.Sleep(50 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if n := api.readsOf("/api/mokjangs"); n != 1 {
		t.Fatalf("expected exactly one network read, got %d", n)
	}
	if string(results[0]) != string(results[1]) {
		t.Fatalf("callers saw different values: %s vs %s", results[0], results[1])
	}
	if c.Status("/api/mokjangs").Fetching {
		t.Fatalf("fetching flag should clear once the read settles")
	}
}

func TestFetch_CancelledCallerDoesNotCancelSharedRead(t *testing.T) {
	c, api := newTestCache(t)
	api.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "/api/students")
		errCh <- err
	}()
	waitFor(t, func() bool { return api.readsOf("/api/students") == 1 })
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(api.gate)
	waitFor(t, func() bool { return c.Status("/api/students").Cached })
	if _, err := c.Fetch(context.Background(), "/api/students"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := api.readsOf("/api/students"); n != 1 {
		t.Fatalf("expected the abandoned read to populate the cache, got %d reads", n)
	}
}

func TestFetch_TTL(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c, api := newTestCache(t, WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, _ = c.Fetch(ctx, "/api/teachers")
	now = now.Add(30 * time.Second)
	_, _ = c.Fetch(ctx, "/api/teachers")
	if n := api.readsOf("/api/teachers"); n != 1 {
		t.Fatalf("expected cached read within TTL, got %d reads", n)
	}

	now = now.Add(time.Minute)
	if st := c.Status("/api/teachers"); !st.Stale {
		t.Fatalf("expected entry to be stale after TTL")
	}
	if _, ok := c.Peek("/api/teachers"); !ok {
		t.Fatalf("stale entries stay readable through Peek")
	}
	_, _ = c.Fetch(ctx, "/api/teachers")
	if n := api.readsOf("/api/teachers"); n != 2 {
		t.Fatalf("expected refetch after TTL, got %d reads", n)
	}
}

func TestFetch_401Handling(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	raw, err := c.Fetch(ctx, "/api/user", On401Nil())
	if err != nil {
		t.Fatalf("On401Nil should not error, got %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("expected null, got %s", raw)
	}

	c.Clear()
	_, err = c.Fetch(ctx, "/api/user")
	if StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 RequestError, got %v", err)
	}
}

func TestFetch_FailuresAreNotCached(t *testing.T) {
	c, api := newTestCache(t)
	ctx := context.Background()

	_, err := c.Fetch(ctx, "/api/broken")
	var re *RequestError
	if !errors.As(err, &re) || re.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 RequestError, got %v", err)
	}
	if re.Message() != "database unavailable" {
		t.Fatalf("unexpected message %q", re.Message())
	}
	_, _ = c.Fetch(ctx, "/api/broken")
	if n := api.readsOf("/api/broken"); n != 2 {
		t.Fatalf("errors must not be cached, got %d reads", n)
	}
	if _, ok := c.Peek("/api/broken"); ok {
		t.Fatalf("failed read must leave no entry")
	}
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestFetch_NetworkErrorHasZeroStatus(t *testing.T) {
	c := New("http://api.invalid", failingDoer{})
	_, err := c.Fetch(context.Background(), "/api/students")
	var re *RequestError
	if !errors.As(err, &re) || re.Status != 0 || re.Err == nil {
		t.Fatalf("expected transport RequestError, got %#v", err)
	}
}

func TestGet_Decodes(t *testing.T) {
	c, _ := newTestCache(t)
	v, err := Get[struct {
		Version int64 `json:"version"`
	}](context.Background(), c, "/api/students")
	if err != nil || v.Version != 0 {
		t.Fatalf("unexpected %+v, %v", v, err)
	}

	type user struct{ ID string }
	u, err := Get[*user](context.Background(), c, "/api/user", On401Nil())
	if err != nil || u != nil {
		t.Fatalf("expected nil user, got %+v, %v", u, err)
	}
}

// ---------------------------------------------------------------------------
// Mutate / Invalidate / Clear
// ---------------------------------------------------------------------------

func TestMutate_InvalidatesResourcePrefix(t *testing.T) {
	c, api := newTestCache(t)
	ctx := context.Background()

	filtered := Key("/api/students", url.Values{"mokjangId": {"m1"}})
	for _, k := range []string{"/api/students", filtered, "/api/mokjangs", "/api/students-export"} {
		if _, err := c.Fetch(ctx, k); err != nil {
			t.Fatalf("fetch %s: %v", k, err)
		}
	}

	if _, err := c.Mutate(ctx, http.MethodPatch, "/api/students/4", map[string]string{"name": "Mina"}); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	raw, _ := c.Fetch(ctx, "/api/students")
	if versionOf(t, raw) != 1 {
		t.Fatalf("expected post-mutation data, got %s", raw)
	}
	_, _ = c.Fetch(ctx, filtered)
	_, _ = c.Fetch(ctx, "/api/mokjangs")
	_, _ = c.Fetch(ctx, "/api/students-export")

	if n := api.readsOf(filtered); n != 2 {
		t.Fatalf("filtered list should be refetched, got %d reads", n)
	}
	if n := api.readsOf("/api/mokjangs"); n != 1 {
		t.Fatalf("other collections must stay cached, got %d reads", n)
	}
	if n := api.readsOf("/api/students-export"); n != 1 {
		t.Fatalf("prefix must match on segment boundaries, got %d reads", n)
	}
}

func TestMutate_AlsoInvalidate(t *testing.T) {
	c, api := newTestCache(t)
	ctx := context.Background()

	_, _ = c.Fetch(ctx, "/api/students")
	if _, err := c.Mutate(ctx, http.MethodDelete, "/api/mokjangs/m1", nil, AlsoInvalidate("/api/students")); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	_, _ = c.Fetch(ctx, "/api/students")
	if n := api.readsOf("/api/students"); n != 2 {
		t.Fatalf("expected students refetched, got %d reads", n)
	}
}

func TestMutate_FailureLeavesCacheUntouched(t *testing.T) {
	c, api := newTestCache(t)
	ctx := context.Background()

	_, _ = c.Fetch(ctx, "/api/students")
	_, err := c.Mutate(ctx, http.MethodPost, "/api/students?fail=1", map[string]string{})
	var re *RequestError
	if !errors.As(err, &re) || re.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 RequestError, got %v", err)
	}
	if re.Message() != "name is required" || re.Body == "" {
		t.Fatalf("expected body text to be carried, got %+v", re)
	}

	_, _ = c.Fetch(ctx, "/api/students")
	if n := api.readsOf("/api/students"); n != 1 {
		t.Fatalf("failed mutation must not invalidate, got %d reads", n)
	}
}

func TestClear_ForcesNetworkAfterLogout(t *testing.T) {
	c, api := newTestCache(t)
	ctx := context.Background()

	_, _ = c.Fetch(ctx, "/api/students")
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear")
	}
	_, _ = c.Fetch(ctx, "/api/students")
	if n := api.readsOf("/api/students"); n != 2 {
		t.Fatalf("expected a fresh network read after Clear, got %d", n)
	}
}

func TestClear_DropsReadsInFlight(t *testing.T) {
	c, api := newTestCache(t)
	api.gate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), "/api/students")
		done <- err
	}()
	waitFor(t, func() bool { return api.readsOf("/api/students") == 1 })

	c.Clear()
	close(api.gate)
	if err := <-done; err != nil {
		t.Fatalf("in-flight caller should still get its value: %v", err)
	}
	if _, ok := c.Peek("/api/students"); ok {
		t.Fatalf("a read started before Clear must not be stored")
	}
}

func TestSet_WinsOverReadInFlight(t *testing.T) {
	c, api := newTestCache(t)
	api.gate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		_, _ = c.Fetch(context.Background(), "/api/user", On401Nil())
		close(done)
	}()
	waitFor(t, func() bool { return api.readsOf("/api/user") == 1 })

	c.Set("/api/user", json.RawMessage(`{"id":"u1"}`))
	close(api.gate)
	<-done

	raw, _ := c.Peek("/api/user")
	if string(raw) != `{"id":"u1"}` {
		t.Fatalf("expected Set value to survive the older read, got %s", raw)
	}
}

// ---------------------------------------------------------------------------
// Keys and prefixes
// ---------------------------------------------------------------------------

func TestKey_IsDeterministic(t *testing.T) {
	a := Key("/api/attendance", url.Values{"to": {"2026-10-18"}, "from": {"2026-09-06"}})
	b := Key("/api/attendance", url.Values{"from": {"2026-09-06"}, "to": {"2026-10-18"}})
	if a != b || a != "/api/attendance?from=2026-09-06&to=2026-10-18" {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if Key("/api/students", nil) != "/api/students" {
		t.Fatalf("empty query must not add a separator")
	}
}

func TestResourcePrefix(t *testing.T) {
	cases := map[string]string{
		"/api/students":                       "/api/students",
		"/api/students/4":                     "/api/students",
		"/api/ministries/9/members/student/4": "/api/ministries",
		"/api/attendance?from=2026-10-04":     "/api/attendance",
		"/api":                                "/api",
	}
	for in, want := range cases {
		if got := ResourcePrefix(in); got != want {
			t.Fatalf("ResourcePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		key, prefix string
		want        bool
	}{
		{"/api/students", "/api/students", true},
		{"/api/students/4", "/api/students", true},
		{"/api/students?mokjangId=m1", "/api/students", true},
		{"/api/students-export", "/api/students", false},
		{"/api/mokjangs", "/api/students", false},
		{"/api/students", "/api/students/", true},
		{"/api/anything", "", true},
	}
	for _, tc := range cases {
		if got := matches(tc.key, tc.prefix); got != tc.want {
			t.Fatalf("matches(%q, %q) = %v, want %v", tc.key, tc.prefix, got, tc.want)
		}
	}
}

func TestRequestError_Message(t *testing.T) {
	cases := []struct {
		err  *RequestError
		want string
	}{
		{&RequestError{Status: 409, Body: `{"error":"email already registered"}`}, "email already registered"},
		{&RequestError{Status: 400, Body: `{"message":"bad week"}`}, "bad week"},
		{&RequestError{Status: 502, Body: "upstream down"}, "upstream down"},
		{&RequestError{Status: 404, Body: `{}`}, "Not Found"},
	}
	for _, tc := range cases {
		if got := tc.err.Message(); got != tc.want {
			t.Fatalf("Message() = %q, want %q", got, tc.want)
		}
	}
	if MessageOf(fmt.Errorf("wrapped: %w", cases[0].err)) != "email already registered" {
		t.Fatalf("MessageOf should unwrap RequestError")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
