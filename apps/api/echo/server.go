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

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/audit"
	"github.com/amork0112-rgb/frageedu/core/news"
	"github.com/amork0112-rgb/frageedu/core/user"
	throttlesvc "github.com/amork0112-rgb/frageedu/services/throttle"
)

type (
	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		UserSvc      user.Service
		AdmissionSvc admission.Service
		AdminSvc     admin.Service
		NewsSvc      news.Service
		AuditSvc     audit.Service
		Limiter      throttlesvc.Limiter
		Media        core.MediaStore
		Validate     *validator.Validate
		Translator   ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		ServerDeps
		app      *echo.Echo
		tokens   *tokenIssuer
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		ServerDeps: deps,
		app:        echo.New(),
		tokens:     newTokenIssuer(deps.Conf),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.Conf.Server.CORSOrigins,
		AllowCredentials: true,
	}))

	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler(s.signalShutdown)
	s.app.Debug = s.Conf.Debug

	renderer, err := newPageRenderer()
	if err != nil {
		panic(err) // embedded templates are broken
	}
	s.app.Renderer = renderer

	api := s.app.Group("/api")
	api.GET("", s.home)

	jwt := middleware.JWTWithConfig(s.tokens.jwtConfig())

	s.registerUserAPI(api, jwt)
	s.registerAdmissionAPI(api, jwt)
	s.registerNewsAPI(api)
	s.registerAdminAPI(api.Group("/admin"), jwt)

	s.registerWeb()
}

func (s *server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// mediaDir is where the local media store writes; it is served under the media base URL.
func (s *server) mediaDir() string {
	dir := s.Conf.Media.Dir
	if dir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(s.Conf.WorkDir, dir)
	}
	return dir
}

func (s *server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": s.Conf.AppName + " API", "version": "1.0"})
}
