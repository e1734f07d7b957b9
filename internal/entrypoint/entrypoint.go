package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/vcfgen/internal/audit"
	"github.com/mrlokans/vcfgen/internal/config"
	"github.com/mrlokans/vcfgen/internal/database"
	auditrepo "github.com/mrlokans/vcfgen/internal/database/audit"
	"github.com/mrlokans/vcfgen/internal/database/generations"
	http_controllers "github.com/mrlokans/vcfgen/internal/http"
	"github.com/mrlokans/vcfgen/internal/middleware"
	"github.com/mrlokans/vcfgen/internal/scheduler"
	"github.com/mrlokans/vcfgen/internal/tasks"
)

// App holds the wired components of the web server.
type App struct {
	cfg *config.Config

	DB          *database.Database
	Generations *generations.Repository
	Auditor     *audit.Service
	TaskClient  *tasks.Client
	Scheduler   *scheduler.RetentionScheduler
	Handler     http.Handler
}

// NewApp opens the database, the task queue and builds the router.
// Call Close when done.
func NewApp(cfg *config.Config, version string) (*App, error) {
	if err := ensureWritableDir(cfg.Output.Dir); err != nil {
		return nil, err
	}
	if cfg.Retention.Enabled {
		if err := scheduler.ValidateSchedule(cfg.Retention.Schedule); err != nil {
			return nil, fmt.Errorf("invalid RETENTION_SCHEDULE %q: %w", cfg.Retention.Schedule, err)
		}
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		cfg:         cfg,
		DB:          db,
		Generations: generations.NewRepository(db.DB),
	}

	if cfg.Audit.Enabled {
		app.Auditor = audit.NewService(auditrepo.NewRepository(db.DB))
	} else {
		log.Printf("Audit logging disabled")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:        db,
		Generations:     app.Generations,
		Auditor:         app.Auditor,
		SecureCookies:   cfg.Sessions.SecureCookies,
		DefaultFileName: cfg.Output.DefaultFileName,
		MaxInvalidShown: cfg.Report.MaxInvalidShown,
		Version:         version,
	}

	if cfg.Tasks.Enabled {
		app.TaskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromSettings(cfg.Tasks))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.TaskClient.Register(
			tasks.NewGenerateVCardQueue(tasks.GenerateVCardDeps{
				Store:     app.Generations,
				Auditor:   app.Auditor,
				OutputDir: cfg.Output.Dir,
			}),
			tasks.NewCleanupGenerationsQueue(tasks.CleanupDeps{
				Generations: app.Generations,
				Events:      app.Auditor,
				Auditor:     app.Auditor,
			}),
		)
		routerCfg.TaskQueue = app.TaskClient

		if cfg.Retention.Enabled {
			app.Scheduler = scheduler.NewRetentionScheduler(app.TaskClient, cfg.Retention.Schedule, cfg.Retention.MaxAge)
			routerCfg.Scheduler = app.Scheduler
		}
	} else {
		log.Printf("WARNING: task queue is disabled. Generations cannot be started from the web UI. Set 'TASKS_ENABLED=true' to enable.")
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	routerCfg.SessionManager, err = middleware.NewSessionManager(sqlDB, cfg.Sessions)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	if cfg.Sessions.Secret != "" {
		routerCfg.CSRFSecret = middleware.DecodeSessionSecret(cfg.Sessions.Secret)
	} else {
		routerCfg.CSRFSecret, err = middleware.GenerateSessionSecret()
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
		}
		log.Printf("Generated session secret (set SESSION_SECRET to persist)")
	}

	app.Handler = http_controllers.NewRouter(routerCfg)
	return app, nil
}

// Close flushes pending audit events and releases the task and main databases.
func (a *App) Close() {
	a.Auditor.Wait()
	if a.TaskClient != nil {
		if err := a.TaskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// Serve runs the HTTP server, the task workers and the retention scheduler
// until ctx is cancelled or one of them fails. On shutdown the task queue is
// stopped first so running generations finish writing their files.
func Serve(ctx context.Context, app *App) error {
	cfg := app.cfg
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if app.Scheduler != nil {
		if err := app.Scheduler.Start(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	var taskCancel context.CancelFunc = func() {}
	if app.TaskClient != nil {
		var taskCtx context.Context
		taskCtx, taskCancel = context.WithCancel(context.Background())
		g.Go(func() error {
			app.TaskClient.Start(taskCtx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutdown Server, waiting %v before killing", timeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if app.Scheduler != nil {
			app.Scheduler.Stop()
		}
		if app.TaskClient != nil {
			app.TaskClient.Stop(shutdownCtx)
		}
		taskCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	log.Println("Server exiting")
	return err
}

// Run wires the application from cfg and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting vcfgen v%s", version)

	app, err := NewApp(cfg, version)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Serve(ctx, app); err != nil {
		log.Printf("Server error: %v", err)
	}
}

// ensureWritableDir creates dir if needed and checks that files can be written there.
func ensureWritableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}

	marker := filepath.Join(dir, ".vcfgen")
	f, err := os.Create(marker)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	f.Close()
	if err := os.Remove(marker); err != nil {
		return fmt.Errorf("could not remove the test file from %s: %w", dir, err)
	}
	log.Printf("Output directory %s is writable", dir)
	return nil
}
