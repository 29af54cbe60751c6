// Package cache holds every server response the console has read, keyed by
// request path, and keeps it consistent with the writes made through it.
//
// Reads go through Fetch, which serves fresh entries from memory and coalesces
// concurrent network reads of the same key. Writes go through Mutate, which
// marks the written resource stale on success. Clear empties the cache on logout.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const maxBodyBytes = 4 << 20

// Doer is the subset of *http.Client the cache needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type entry struct {
	raw       json.RawMessage
	fetchedAt time.Time
	stale     bool
}

// Cache is safe for concurrent use.
type Cache struct {
	baseURL string
	client  Doer
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu       sync.Mutex
	entries  map[string]*entry
	gens     map[string]uint64
	fetching map[string]int
	epoch    uint64
	flights  singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long an entry stays fresh. Zero means entries only go
// stale through Invalidate.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache reading from baseURL through client.
func New(baseURL string, client Doer, opts ...Option) *Cache {
	c := &Cache{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		now:      time.Now,
		log:      zerolog.Nop(),
		entries:  make(map[string]*entry),
		gens:     make(map[string]uint64),
		fetching: make(map[string]int),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key builds the cache key for path and query. url.Values.Encode sorts by
// parameter name, so equal queries always produce equal keys.
func Key(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// ResourcePrefix returns the collection a path belongs to: its first three
// slash-delimited components, e.g. /api/students/4/notes -> /api/students.
func ResourcePrefix(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.SplitN(path, "/", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "/")
}

// matches reports whether key lies under prefix on a path-segment boundary.
func matches(key, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	rest := key[len(prefix):]
	return rest == "" || rest[0] == '/' || rest[0] == '?'
}

// FetchOption tunes a single Fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	nilOn401 bool
}

// On401Nil resolves a 401 to a JSON null value instead of an error.
func On401Nil() FetchOption {
	return func(o *fetchOptions) { o.nilOn401 = true }
}

// On401Error reports a 401 as a *RequestError. This is the default.
func On401Error() FetchOption {
	return func(o *fetchOptions) { o.nilOn401 = false }
}

// Fetch returns the value stored under key when it is fresh, and otherwise
// reads baseURL+key from the network and stores the result. Callers fetching
// the same key at the same time share one network read. A caller whose ctx
// ends stops waiting, but the shared read carries on for the others.
func (c *Cache) Fetch(ctx context.Context, key string, opts ...FetchOption) (json.RawMessage, error) {
	var fo fetchOptions
	for _, o := range opts {
		o(&fo)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.fresh(e) {
		raw := e.raw
		c.mu.Unlock()
		return raw, nil
	}
	gen, ok := c.gens[key]
	if !ok {
		c.gens[key] = 0
	}
	epoch := c.epoch
	c.mu.Unlock()

	flightKey := fmt.Sprintf("%d:%d:%t:%s", epoch, gen, fo.nilOn401, key)
	ch := c.flights.DoChan(flightKey, func() (any, error) {
		c.setFetching(key, 1)
		defer c.setFetching(key, -1)

		raw, err := c.read(context.WithoutCancel(ctx), key, fo)
		if err != nil {
			return nil, err
		}
		c.store(epoch, gen, key, raw)
		return raw, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get fetches key and decodes it into T. A JSON null decodes to T's zero value.
func Get[T any](ctx context.Context, c *Cache, key string, opts ...FetchOption) (T, error) {
	var out T
	raw, err := c.Fetch(ctx, key, opts...)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// MutateOption tunes a single Mutate.
type MutateOption func(*mutateOptions)

type mutateOptions struct {
	extra []string
}

// AlsoInvalidate marks more prefixes stale on success, for writes that change
// a second collection, such as deleting a mokjang unassigning its students.
func AlsoInvalidate(prefixes ...string) MutateOption {
	return func(o *mutateOptions) { o.extra = append(o.extra, prefixes...) }
}

// Mutate sends a write. On a 2xx response it invalidates ResourcePrefix(path)
// and any AlsoInvalidate prefixes, then returns the response body. Any other
// outcome returns a *RequestError and leaves the cache untouched.
func (c *Cache) Mutate(ctx context.Context, method, path string, body any, opts ...MutateOption) (json.RawMessage, error) {
	var mo mutateOptions
	for _, o := range opts {
		o(&mo)
	}
	raw, err := c.Request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ResourcePrefix(path))
	for _, p := range mo.extra {
		c.Invalidate(p)
	}
	return raw, nil
}

// Request sends one request without touching the cache.
func (c *Cache) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	status, raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &RequestError{Status: status, Body: string(raw)}
	}
	return raw, nil
}

// Invalidate marks every entry under prefixOrKey stale. Reads already in
// flight for those keys still return to their callers but are not stored.
func (c *Cache) Invalidate(prefixOrKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.gens {
		if !matches(key, prefixOrKey) {
			continue
		}
		c.gens[key]++
		if e, ok := c.entries[key]; ok {
			e.stale = true
			n++
		}
	}
	c.log.Debug().Str("prefix", prefixOrKey).Int("entries", n).Msg("cache invalidated")
}

// Set stores raw under key as a fresh entry, replacing any read in flight.
func (c *Cache) Set(key string, raw json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.entries[key] = &entry{raw: raw, fetchedAt: c.now()}
}

// Peek returns the stored value for key, fresh or stale, without any network.
func (c *Cache) Peek(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.raw, true
}

// Status describes one key.
type Status struct {
	Cached    bool
	Stale     bool
	Fetching  bool
	FetchedAt time.Time
}

func (c *Cache) Status(key string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{Fetching: c.fetching[key] > 0}
	if e, ok := c.entries[key]; ok {
		st.Cached = true
		st.Stale = !c.fresh(e)
		st.FetchedAt = e.fetchedAt
	}
	return st
}

// Clear drops every entry. Reads in flight when Clear runs are never stored.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[string]*entry)
	c.gens = make(map[string]uint64)
	c.log.Debug().Uint64("epoch", c.epoch).Msg("cache cleared")
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fresh(e *entry) bool {
	if e.stale {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(e.fetchedAt) < c.ttl
}

func (c *Cache) store(epoch, gen uint64, key string, raw json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.gens[key] != gen {
		return
	}
	c.entries[key] = &entry{raw: raw, fetchedAt: c.now()}
}

func (c *Cache) setFetching(key string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching[key] += delta
	if c.fetching[key] <= 0 {
		delete(c.fetching, key)
	}
}

func (c *Cache) read(ctx context.Context, key string, fo fetchOptions) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+key, nil)
	if err != nil {
		return nil, err
	}
	status, raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("key", key).Int("status", status).Msg("cache miss")

	switch {
	case status == http.StatusUnauthorized && fo.nilOn401:
		return json.RawMessage("null"), nil
	case status < 200 || status > 299:
		return nil, &RequestError{Status: status, Body: string(raw)}
	case len(bytes.TrimSpace(raw)) == 0:
		return json.RawMessage("null"), nil
	}
	return raw, nil
}

func (c *Cache) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, &RequestError{Status: resp.StatusCode, Err: err}
	}
	return resp.StatusCode, raw, nil
}
