// Package console serves the browser-facing admin pages. Every page reads the
// API through the visiting browser's Workspace and is gated by guard.Decide.
package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/client/cache"
	"github.com/mokjang/youth-admin/internal/client/gate"
	"github.com/mokjang/youth-admin/internal/client/guard"
	"github.com/mokjang/youth-admin/internal/client/localstore"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

const (
	workspaceKey = "workspace"
	gateKey      = "gate"
)

// defaultLoadWait is how long a page waits for the session before it renders
// the loading view instead.
const defaultLoadWait = 2 * time.Second

// Config configures the console server.
type Config struct {
	CookieName   string
	CookieSecure bool
	// LoadWait bounds the session fetch of one render.
	LoadWait time.Duration
	// LongAbsenceWeeks is the default streak on /long-absence.
	LongAbsenceWeeks int
	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

type Server struct {
	cfg      Config
	registry *Registry
	store    *localstore.Store
	log      zerolog.Logger
	now      func() time.Time
}

// NewServer builds the console's echo instance.
func NewServer(cfg Config, registry *Registry, store *localstore.Store, log zerolog.Logger) (*echo.Echo, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = "console_session"
	}
	if cfg.LoadWait <= 0 {
		cfg.LoadWait = defaultLoadWait
	}
	if cfg.LongAbsenceWeeks < domain.MinLongAbsenceWeeks {
		cfg.LongAbsenceWeeks = 3
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, registry: registry, store: store, log: log, now: time.Now}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = s.handleError

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Err(v.Error).
				Msg("request")
			return nil
		},
	}))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "youth_admin_console",
		Registerer: registerer,
	}))
	e.GET("/health", func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]string{"status": "ok"}) })
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	pages := e.Group("", s.workspace)
	pages.GET("/login", s.loginPage)
	pages.POST("/login", s.login)
	pages.GET("/register", s.registerPage)
	pages.POST("/register", s.register)
	pages.POST("/logout", s.logout)
	pages.POST("/session/refresh", s.refreshSession)
	pages.POST("/password", s.submitPassword)
	pages.POST("/password/dismiss", s.dismissPassword)

	anyUser := guard.AnyUser()
	admin := guard.RequireRole(domain.RoleAdmin)

	pages.GET("/", s.guarded(anyUser, s.dashboard))
	pages.GET("/students", s.guarded(anyUser, s.students))
	pages.POST("/students", s.guarded(anyUser, s.createStudent))
	pages.POST("/students/:id", s.guarded(anyUser, s.updateStudent))
	pages.POST("/students/:id/delete", s.guarded(anyUser, s.deleteStudent))
	pages.GET("/attendance", s.guarded(anyUser, s.attendance))
	pages.POST("/attendance", s.guarded(anyUser, s.markAttendance))
	pages.GET("/long-absence", s.guarded(anyUser, s.longAbsence))
	pages.GET("/mokjangs", s.guarded(anyUser, s.mokjangs))
	pages.POST("/mokjangs", s.guarded(admin, s.createMokjang))
	pages.POST("/mokjangs/:id/delete", s.guarded(admin, s.deleteMokjang))
	pages.GET("/ministries", s.guarded(anyUser, s.ministries))
	pages.POST("/ministries", s.guarded(admin, s.createMinistry))
	pages.POST("/ministries/:id/delete", s.guarded(admin, s.deleteMinistry))
	pages.POST("/ministries/:id/members", s.guarded(admin, s.addMinistryMember))
	pages.POST("/ministries/:id/members/:kind/:memberId/delete", s.guarded(admin, s.removeMinistryMember))
	pages.GET("/teachers", s.guarded(admin, s.teachers))
	pages.POST("/teachers", s.guarded(admin, s.createTeacher))
	pages.POST("/teachers/:id/approve", s.guarded(admin, s.approveTeacher))
	pages.POST("/teachers/:id/delete", s.guarded(admin, s.deleteTeacher))
	pages.GET("/sms", s.guarded(admin, s.sms))
	pages.POST("/sms", s.guarded(admin, s.sendSMS))
	pages.POST("/sms/templates", s.guarded(admin, s.saveTemplate))
	pages.POST("/sms/templates/:id", s.guarded(admin, s.updateTemplate))
	pages.POST("/sms/templates/:id/delete", s.guarded(admin, s.deleteTemplate))

	return e, nil
}

// workspace attaches the browser's Workspace, creating one and setting the
// console cookie when the browser has none or its workspace was evicted.
func (s *Server) workspace(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ck, err := c.Cookie(s.cfg.CookieName); err == nil {
			if ws, ok := s.registry.Get(ck.Value); ok {
				c.Set(workspaceKey, ws)
				return next(c)
			}
		}
		ws, err := s.registry.Create()
		if err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}
		c.SetCookie(&http.Cookie{
			Name:     s.cfg.CookieName,
			Value:    ws.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(workspaceKey, ws)
		return next(c)
	}
}

func workspaceOf(c echo.Context) *Workspace {
	ws, _ := c.Get(workspaceKey).(*Workspace)
	return ws
}

// page renders one guarded page for an admitted user.
type page func(c echo.Context, ws *Workspace, u *domain.SessionUser) error

func (s *Server) guarded(req guard.Requirement, render page) echo.HandlerFunc {
	return func(c echo.Context) error {
		ws := workspaceOf(c)
		ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.LoadWait)
		st := ws.Session.Current(ctx)
		cancel()
		if st.Err != nil {
			s.log.Warn().Err(st.Err).Str("workspace", ws.ID).Msg("session could not be loaded")
		}

		switch d := guard.Decide(st, req); d {
		case guard.DecisionLoading:
			return s.render(c, ws, nil, http.StatusOK, "loading.html", "Loading", nil, 1)
		case guard.DecisionRedirectLogin:
			return c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(c.Request().URL.RequestURI()))
		case guard.DecisionAccessDenied:
			return s.render(c, ws, st.User, http.StatusForbidden, "denied.html", "Access denied", nil, 0)
		case guard.DecisionPendingApproval:
			return s.render(c, ws, st.User, http.StatusOK, "pending.html", "Awaiting approval", nil, 0)
		case guard.DecisionRender:
			// The password overlay only ever sits on top of an admitted page.
			c.Set(gateKey, ws.Gate(st.User))
			return render(c, ws, st.User)
		default:
			return guard.Validate(d)
		}
	}
}

// gateView is the password overlay as the layout draws it.
type gateView struct {
	Blocking   bool
	Confirming bool
	Fading     bool
	Pending    bool
	Errors     gate.FieldErrors
}

type view struct {
	Title   string
	Path    string
	User    *domain.SessionUser
	IsAdmin bool
	Flash   string
	Gate    *gateView
	// Refresh, when positive, reloads the page after that many seconds.
	Refresh int
	Data    any
}

func (s *Server) render(c echo.Context, ws *Workspace, u *domain.SessionUser, status int, name, title string, data any, refresh int) error {
	v := view{
		Title:   title,
		Path:    c.Request().URL.RequestURI(),
		User:    u,
		IsAdmin: u != nil && u.Role == domain.RoleAdmin,
		Flash:   ws.takeFlash(),
		Refresh: refresh,
		Data:    data,
	}
	if g, _ := c.Get(gateKey).(*gate.Gate); g != nil {
		switch g.State() {
		case gate.Blocking:
			v.Gate = &gateView{Blocking: true, Pending: g.Pending(), Errors: ws.takeGateErrors()}
		case gate.ConfirmingBrief:
			v.Gate = &gateView{Confirming: true, Fading: g.Fading()}
			v.Refresh = refreshAfter(g.ConfirmWindow())
		}
	}
	return c.Render(status, name, v)
}

// refreshAfter rounds d up to whole seconds for a meta refresh.
func refreshAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// back redirects to the form's "next" field when it is a local path, else to fallback.
func back(c echo.Context, fallback string) error {
	return c.Redirect(http.StatusSeeOther, localPath(c.FormValue("next"), fallback))
}

func localPath(p, fallback string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return fallback
	}
	return p
}

// handleError renders an error page. An API 401 means the server session
// ended, so the cached user is refetched and the browser sent to login.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	ws := workspaceOf(c)

	status := http.StatusInternalServerError
	msg := "Something went wrong."
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		msg = fmt.Sprint(he.Message)
	case cache.StatusOf(err) == http.StatusUnauthorized && ws != nil:
		ws.Session.Refresh(c.Request().Context())
		_ = c.Redirect(http.StatusSeeOther, "/login")
		return
	case cache.StatusOf(err) >= 400 && cache.StatusOf(err) < 500:
		status = cache.StatusOf(err)
		msg = cache.MessageOf(err)
	case cache.StatusOf(err) != 0:
		status = http.StatusBadGateway
		msg = cache.MessageOf(err)
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("console error")
	}

	if ws == nil {
		_ = c.String(status, msg)
		return
	}
	c.Set(gateKey, nil)
	if err := s.render(c, ws, ws.Session.Snapshot().User, status, "error.html", "Error", msg, 0); err != nil {
		s.log.Error().Err(err).Msg("failed to render error page")
	}
}
