package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/classroom"
	"github.com/trezcool/shule/core/dashboard"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/guard"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type (
	// ServerDeps lists everything the API needs; there are no globals.
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		UserSvc        user.ServiceInterface
		SchoolSvc      school.ServiceInterface
		ClassroomSvc   classroom.ServiceInterface
		StaffSvc       staff.ServiceInterface
		StudentSvc     student.ServiceInterface
		GuardSvc       guard.ServiceInterface
		FinanceSvc     finance.ServiceInterface
		AttendanceSvc  attendance.ServiceInterface
		DashboardSvc   dashboard.ServiceInterface
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", home)
	if conf.Debug {
		// uploads live on local disk in DEV; serve them back directly
		s.app.Static("/media", filepath.Join(conf.WorkDir, "media"))
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	tenant := tenantMiddleware(s.deps.UserSvc, conf)

	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate, conf)
	registerSchoolAPI(v1, jwt, tenant, s.deps.SchoolSvc, s.deps.UserSvc, s.deps.Logger, s.deps.Validate)
	registerClassroomAPI(v1, jwt, tenant, s.deps.ClassroomSvc, s.deps.Validate)
	registerStaffAPI(v1, jwt, tenant, s.deps.StaffSvc, s.deps.Validate)
	registerStudentAPI(v1, jwt, tenant, s.deps.StudentSvc, s.deps.Validate)
	registerGuardAPI(v1, jwt, tenant, s.deps.GuardSvc, s.deps.Validate)
	registerFinanceAPI(v1, jwt, tenant, s.deps.FinanceSvc, s.deps.Validate)
	registerAttendanceAPI(v1, jwt, tenant, s.deps.AttendanceSvc, s.deps.Validate)
	registerDashboardAPI(v1, jwt, tenant, s.deps.DashboardSvc)
}

func (s *Server) Start() {
	s.errs <- s.app.Start(s.deps.Conf.Server.Addr)
}

// Errors surfaces the listener's terminal error.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// ShutdownSignal fires on SIGINT/SIGTERM or when a handler reports an
// unrecoverable error via core.NewShutdownError.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
