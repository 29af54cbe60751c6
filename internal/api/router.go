package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/mokjang/youth-admin/docs"
	"github.com/mokjang/youth-admin/internal/api/handler"
	"github.com/mokjang/youth-admin/internal/api/middleware"
	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
	"github.com/mokjang/youth-admin/internal/core/service"
	mongorepo "github.com/mokjang/youth-admin/internal/infrastructure/db/mongo"
	redisstore "github.com/mokjang/youth-admin/internal/infrastructure/db/redis"
)

// Config is what the router needs beyond its dependencies.
type Config struct {
	JWTSecret  string
	SessionTTL time.Duration
	Cookie     handler.CookieConfig
	// Registry receives the HTTP metrics. Nil means the default registry,
	// which also holds the domain metrics.
	Registry *prometheus.Registry
}

// Services bundles the core services behind the HTTP handlers.
type Services struct {
	Auth       ports.AuthService
	Teachers   ports.TeacherService
	Students   ports.StudentService
	Mokjangs   ports.MokjangService
	Attendance ports.AttendanceService
	Ministries ports.MinistryService
	SMS        ports.SMSService
}

// NewServices wires the Mongo repositories and the Redis session store into
// the core services.
func NewServices(db *mongo.Database, rdb *redis.Client, sender ports.SMSSender, cfg Config, log zerolog.Logger) *Services {
	users := mongorepo.NewUserRepository(db)
	teachers := mongorepo.NewTeacherRepository(db)
	students := mongorepo.NewStudentRepository(db)
	mokjangs := mongorepo.NewMokjangRepository(db)
	attendance := mongorepo.NewAttendanceRepository(db)
	ministries := mongorepo.NewMinistryRepository(db)
	smsLog := mongorepo.NewSMSLogRepository(db)
	sessions := redisstore.NewSessionStore(rdb)

	return &Services{
		Auth:       service.NewAuthService(users, teachers, sessions, cfg.JWTSecret, cfg.SessionTTL, log),
		Teachers:   service.NewTeacherService(users, teachers, mokjangs, ministries, log),
		Students:   service.NewStudentService(students, mokjangs, attendance, ministries, log),
		Mokjangs:   service.NewMokjangService(mokjangs, teachers, students),
		Attendance: service.NewAttendanceService(attendance, students),
		Ministries: service.NewMinistryService(ministries, students, teachers),
		SMS:        service.NewSMSService(smsLog, sender, log),
	}
}

// NewRouter builds and returns the Echo instance with all routes registered.
// checks feeds the readiness probe.
func NewRouter(svc *Services, dispatcher handler.SMSDispatcher, checks map[string]handler.Check, cfg Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "youth_admin",
		Registerer: registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(svc.Auth, cfg.Cookie)
	teacherHandler := handler.NewTeacherHandler(svc.Teachers)
	studentHandler := handler.NewStudentHandler(svc.Students)
	mokjangHandler := handler.NewMokjangHandler(svc.Mokjangs)
	attendanceHandler := handler.NewAttendanceHandler(svc.Attendance)
	ministryHandler := handler.NewMinistryHandler(svc.Ministries)
	smsHandler := handler.NewSMSHandler(svc.SMS, dispatcher)

	session := middleware.Session(svc.Auth, cfg.Cookie.Name)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Auth routes ---
	api := e.Group("/api")
	api.POST("/login", authHandler.Login)
	api.POST("/register", authHandler.Register)
	api.POST("/logout", authHandler.Logout)

	authed := api.Group("", session)
	authed.GET("/user", authHandler.Me)
	authed.POST("/change-password", authHandler.ChangePassword)

	// --- Roster ---
	authed.GET("/teachers", teacherHandler.List)
	authed.POST("/teachers", teacherHandler.Create, adminOnly)
	authed.PATCH("/teachers/:id", teacherHandler.Update, adminOnly)
	authed.DELETE("/teachers/:id", teacherHandler.Delete, adminOnly)

	authed.GET("/students", studentHandler.List)
	authed.POST("/students", studentHandler.Create)
	authed.GET("/students/:id", studentHandler.Get)
	authed.PATCH("/students/:id", studentHandler.Update)
	authed.DELETE("/students/:id", studentHandler.Delete)

	authed.GET("/mokjangs", mokjangHandler.List)
	authed.POST("/mokjangs", mokjangHandler.Create, adminOnly)
	authed.PATCH("/mokjangs/:id", mokjangHandler.Update, adminOnly)
	authed.DELETE("/mokjangs/:id", mokjangHandler.Delete, adminOnly)

	authed.GET("/attendance", attendanceHandler.List)
	authed.POST("/attendance", attendanceHandler.Mark)
	authed.DELETE("/attendance/:id", attendanceHandler.Delete)

	authed.GET("/ministries", ministryHandler.List)
	authed.POST("/ministries", ministryHandler.Create, adminOnly)
	authed.PATCH("/ministries/:id", ministryHandler.Update, adminOnly)
	authed.DELETE("/ministries/:id", ministryHandler.Delete, adminOnly)
	authed.POST("/ministries/:id/members", ministryHandler.AddMember, adminOnly)
	authed.DELETE("/ministries/:id/members/:kind/:memberId", ministryHandler.RemoveMember, adminOnly)

	// --- SMS ---
	authed.GET("/sms", smsHandler.History, adminOnly)
	authed.POST("/sms", smsHandler.Send, adminOnly)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(checks)

	e.GET("/health", healthHandler.Liveness)          // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
