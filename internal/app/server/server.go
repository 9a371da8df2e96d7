package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/domain/announcement"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/dashboard"
	"ems/internal/domain/employee"
	"ems/internal/domain/leave"
	"ems/internal/domain/notifications"
	"ems/internal/domain/org"
	"ems/internal/domain/recruitment"
	"ems/internal/platform/blob"
	"ems/internal/platform/config"
	"ems/internal/platform/crypto"
	"ems/internal/platform/db"
	"ems/internal/platform/email"
	"ems/internal/platform/jobs"
	"ems/internal/platform/metrics"
	"ems/internal/platform/version"
	"ems/internal/requestctx"
	"ems/internal/transport/http/api"
	announcementhandler "ems/internal/transport/http/handlers/announcements"
	audithandler "ems/internal/transport/http/handlers/audit"
	authhandler "ems/internal/transport/http/handlers/auth"
	dashboardhandler "ems/internal/transport/http/handlers/dashboard"
	employeehandler "ems/internal/transport/http/handlers/employees"
	leavehandler "ems/internal/transport/http/handlers/leave"
	orghandler "ems/internal/transport/http/handlers/org"
	recruitmenthandler "ems/internal/transport/http/handlers/recruitment"
	"ems/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler

	stopJobs context.CancelFunc
}

// New connects to the database, applies migrations and seed data when
// configured, and assembles the HTTP router. The background job worker is
// running when New returns; Close stops it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	box, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	blobs, err := blob.NewLocal(cfg.UploadDir)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		pool.Close()
		return nil, err
	}

	collector := metrics.New()
	jobService := jobs.New(collector)
	jobCtx, stopJobs := context.WithCancel(context.Background())
	jobService.Start(jobCtx)

	app := &App{
		Config:   cfg,
		DB:       pool,
		Jobs:     jobService,
		Metrics:  collector,
		stopJobs: stopJobs,
	}

	tx := db.NewTxManager(pool)
	auditService := audit.New(pool)
	notifier := notifications.New(email.New(cfg), jobService, cfg.EmailFrom, cfg.PublicBaseURL, cfg.ResetTokenTTL)

	authService := auth.NewService(auth.NewStore(pool), box, cfg.JWTSecret, cfg.SessionTTL, cfg.ResetTokenTTL, notifier)
	employeeService := employee.NewService(employee.NewStore(pool, box), blobs, authService, tx)
	orgStore := org.NewStore(pool)
	departmentService := org.NewDepartmentService(orgStore)
	positionService := org.NewPositionService(orgStore)
	leaveService := leave.NewService(leave.NewStore(pool), leaveEvents{next: notifier, metrics: collector})
	recruitmentService := recruitment.NewService(recruitment.NewStore(pool), employeeService, blobs, tx)
	announcementService := announcement.NewService(announcement.NewStore(pool), blobs)
	dashboardService := &dashboard.Service{
		Employees:     employeeService,
		Leaves:        leaveService,
		Departments:   departmentService,
		Positions:     positionService,
		Applications:  recruitmentService,
		Announcements: announcementService,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(middleware.APIHeaderPolicy(cfg.IsProduction())))
	router.Use(middleware.Logger(collector))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, authService))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, version.Info(), requestctx.GetRequestID(r.Context()))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), requestctx.GetRequestID(r.Context()))
		})
	}

	router.Handle(blob.PublicRoot+"/*", http.StripPrefix(blob.PublicRoot, uploadsHandler(cfg.UploadDir)))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(authService, employeeService, authorizer, auditService, cfg.MaxUploadBytes).RegisterRoutes(r)
		employeehandler.NewHandler(employeeService, authorizer, auditService, cfg.MaxUploadBytes).RegisterRoutes(r)
		orghandler.NewHandler(departmentService, positionService, authorizer, auditService).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, authorizer, auditService).RegisterRoutes(r)
		recruitmenthandler.NewHandler(recruitmentService, authorizer, auditService, cfg.MaxUploadBytes).RegisterRoutes(r)
		announcementhandler.NewHandler(announcementService, authorizer, auditService, cfg.MaxUploadBytes).RegisterRoutes(r)
		dashboardhandler.NewHandler(dashboardService, authorizer).RegisterRoutes(r)
		audithandler.NewHandler(auditService, authorizer).RegisterRoutes(r)
	})

	app.Router = router
	return app, nil
}

// Close stops the job worker, letting queued email drain, then closes the pool.
func (a *App) Close() {
	if a.stopJobs != nil {
		a.stopJobs()
		a.Jobs.Wait()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until SIGINT or SIGTERM and then shuts down gracefully.
func Run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("EMS server listening", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// uploadsHandler serves stored files without directory listings.
func uploadsHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=300")
		files.ServeHTTP(w, r)
	})
}

// leaveEvents counts leave decisions before passing them on for email.
type leaveEvents struct {
	next    leave.Notifier
	metrics *metrics.Collector
}

func (e leaveEvents) LeaveDecided(ctx context.Context, req leave.Request) {
	e.metrics.Event("leave." + string(req.Status))
	if e.next != nil {
		e.next.LeaveDecided(ctx, req)
	}
}
