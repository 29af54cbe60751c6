package console

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/client/cache"
	"github.com/mokjang/youth-admin/internal/client/gate"
	"github.com/mokjang/youth-admin/internal/client/session"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

// Workspace is everything the console keeps for one browser: its own API
// cookie jar, request cache, session provider and password gate.
type Workspace struct {
	ID      string
	Cache   *cache.Cache
	Session *session.Provider

	gateOpts []gate.Option

	mu         sync.Mutex
	gate       *gate.Gate
	gateUser   string
	gateErrors gate.FieldErrors
	flash      string
	lastSeen   time.Time
}

// Gate returns the password gate mounted for u, mounting a new one when the
// user changed since the last call. It returns nil for a nil user.
func (w *Workspace) Gate(u *domain.SessionUser) *gate.Gate {
	w.mu.Lock()
	defer w.mu.Unlock()
	if u == nil {
		return nil
	}
	if w.gate == nil || w.gateUser != u.ID {
		if w.gate != nil {
			w.gate.Close()
		}
		w.gate = gate.New(u.MustChangePassword, w.Session, w.gateOpts...)
		w.gateUser = u.ID
		w.gateErrors = nil
	}
	return w.gate
}

// unmountGate drops the gate, on logout.
func (w *Workspace) unmountGate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gate != nil {
		w.gate.Close()
	}
	w.gate, w.gateUser, w.gateErrors = nil, "", nil
}

// Flash stores a one-shot message for the next render.
func (w *Workspace) Flash(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flash = msg
}

func (w *Workspace) takeFlash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := w.flash
	w.flash = ""
	return msg
}

func (w *Workspace) setGateErrors(fe gate.FieldErrors) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gateErrors = fe
}

func (w *Workspace) takeGateErrors() gate.FieldErrors {
	w.mu.Lock()
	defer w.mu.Unlock()
	fe := w.gateErrors
	w.gateErrors = nil
	return fe
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = now
}

func (w *Workspace) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}

// RegistryConfig configures the workspaces a Registry creates.
type RegistryConfig struct {
	APIBaseURL  string
	CacheTTL    time.Duration
	IdleTimeout time.Duration
	// Transport overrides http.DefaultTransport, for tests.
	Transport http.RoundTripper
	GateOpts  []gate.Option
}

// Registry holds the live workspaces, keyed by console session id.
type Registry struct {
	cfg RegistryConfig
	log zerolog.Logger
	now func() time.Time

	mu     sync.Mutex
	spaces map[string]*Workspace
}

func NewRegistry(cfg RegistryConfig, log zerolog.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		spaces: make(map[string]*Workspace),
	}
}

// Get returns the workspace for id and marks it as used.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	ws, ok := r.spaces[id]
	r.mu.Unlock()
	if ok {
		ws.touch(r.now())
	}
	return ws, ok
}

// Create starts a workspace with an empty cookie jar and cache.
func (r *Registry) Create() (*Workspace, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar, Timeout: 15 * time.Second, Transport: r.cfg.Transport}

	id := uuid.NewString()
	log := r.log.With().Str("workspace", id).Logger()
	c := cache.New(r.cfg.APIBaseURL, client, cache.WithTTL(r.cfg.CacheTTL), cache.WithLogger(log))
	ws := &Workspace{
		ID:       id,
		Cache:    c,
		Session:  session.New(c, log),
		gateOpts: r.cfg.GateOpts,
		lastSeen: r.now(),
	}

	r.mu.Lock()
	r.spaces[id] = ws
	r.mu.Unlock()
	r.log.Debug().Str("workspace", id).Msg("workspace created")
	return ws, nil
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces)
}

// Evict drops workspaces idle for longer than IdleTimeout and returns how many.
func (r *Registry) Evict() int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	var idle []*Workspace
	for id, ws := range r.spaces {
		if ws.idleSince(now) > r.cfg.IdleTimeout {
			idle = append(idle, ws)
			delete(r.spaces, id)
		}
	}
	r.mu.Unlock()

	for _, ws := range idle {
		ws.unmountGate()
		ws.Cache.Clear()
	}
	if len(idle) > 0 {
		r.log.Info().Int("evicted", len(idle)).Msg("idle workspaces evicted")
	}
	return len(idle)
}

// Run evicts idle workspaces every interval until ctx ends.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}
