package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/internal/db"
	"github.com/hrdesk/apiserver/internal/mq"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/internal/storage"
	"github.com/hrdesk/apiserver/internal/store"
)

// App holds the connections and services shared by the HTTP server and the
// command line tools.
type App struct {
	DB      *sql.DB
	Storage *storage.Storage
	MQ      *mq.MQ

	Auth        *services.AuthService
	Users       *services.UserService
	Employees   *services.EmployeeService
	Departments *services.DepartmentService
	Attendance  *services.AttendanceService
	Files       *services.FileService
	Reports     *services.ReportService
}

// OpenApp connects to Postgres, object storage and the broker and wires
// every service.
func OpenApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{DB: dbConn}

	app.Storage, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := app.Storage.EnsureBucket(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", app.Storage.Bucket(), err)
	}

	app.MQ, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	audit := services.NewAuditor(app.MQ, cfg.MQ.Channel, logger)

	userRepo := store.NewUserRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)
	employeeRepo := store.NewEmployeeRepository(dbConn)
	departmentRepo := store.NewDepartmentRepository(dbConn)
	attendanceRepo := store.NewAttendanceRepository(dbConn)
	fileRepo := store.NewFileRepository(dbConn)

	app.Auth = services.NewAuthService(userRepo, sessionRepo, cfg.Session, logger)
	app.Users = services.NewUserService(userRepo, sessionRepo, cfg.Access.PrimaryAdminUsername, audit, logger)
	app.Files = services.NewFileService(fileRepo, app.Storage, cfg.Storage.MaxUploadBytes, audit, logger)
	app.Employees = services.NewEmployeeService(employeeRepo, app.Files, audit, logger)
	app.Departments = services.NewDepartmentService(departmentRepo, employeeRepo, audit, logger)
	app.Attendance, err = services.NewAttendanceService(attendanceRepo, employeeRepo, cfg.Attendance, audit, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Reports = services.NewReportService(employeeRepo, departmentRepo, app.Attendance, logger)

	return app, nil
}

// Close releases the broker and database connections.
func (a *App) Close() error {
	var errs []error
	if a.MQ != nil {
		errs = append(errs, a.MQ.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
