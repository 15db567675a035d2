package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/handlers"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	app        *App
	logger     *slog.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cookies, err := handlers.NewSessionCookies(cfg.Session.Secret, cfg.Session.CookieSecure)
	if err != nil {
		return nil, errors.New("SESSION_SECRET is required")
	}
	policy, err := access.Load(cfg.Access.PermissionsFile)
	if err != nil {
		return nil, err
	}

	app, err := OpenApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	guard := handlers.NewGuard(policy)
	renderer, err := handlers.NewRenderer(guard)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)

	router.Group(func(r chi.Router) {
		r.Use(handlers.Authenticate(app.Auth, cookies))

		handlers.AuthRouter(r, handlers.NewAuthHandler(app.Auth, app.Users, app.Employees, cookies, renderer))
		handlers.DashboardRouter(r, handlers.NewDashboardHandler(app.Reports, renderer), guard)
		handlers.EmployeeRouter(r, handlers.NewEmployeeHandler(app.Employees, app.Departments, app.Files, renderer), guard)
		handlers.DepartmentRouter(r, handlers.NewDepartmentHandler(app.Departments, app.Employees, renderer), guard)
		handlers.AttendanceRouter(r, handlers.NewAttendanceHandler(app.Attendance, app.Departments, renderer), guard)
		handlers.FileRouter(r, handlers.NewFileHandler(app.Files, app.Employees, cfg.Storage.MaxUploadBytes), guard)
		handlers.UserRouter(r, handlers.NewUserHandler(app.Users, app.Employees, renderer), guard)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		app:        app,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and then closes the connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.app.Close())
}
