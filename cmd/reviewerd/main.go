package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	reviewers "github.com/goliatone/go-reviewers"
	"github.com/goliatone/go-reviewers/api"
	"github.com/goliatone/go-reviewers/cmd/reviewerd/config"
	"github.com/goliatone/go-reviewers/ledger"
	"github.com/goliatone/go-reviewers/migrations"
	"github.com/goliatone/go-reviewers/notify"
	"github.com/goliatone/go-reviewers/permission"
	"github.com/goliatone/go-reviewers/pkg/schema"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/selector"
	"github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config    *gconfig.Container[*config.BaseConfig]
	bunDB     *bun.DB
	srv       router.Server[*fiber.App]
	logger    *glog.BaseLogger
	reviews   *reviewers.Service
	directory *staticDirectory
	tasks     *taskRegistry
	scheduler *cron.Cron
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("reviewerd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "8979",
		},
		Persistence: config.PersistenceConfig{
			Driver:         "sqlite",
			Server:         "file::memory:?cache=shared",
			PingTimeout:    5 * time.Second,
			OtelIdentifier: "go-reviewers",
		},
		Engine: config.EngineConfig{
			Strategy:       string(selector.StrategyWeighted),
			UpcomingWindow: 2 * time.Hour,
			CacheProfiles:  true,
			SweepSchedule:  "@every 5m",
			SweepBatchSize: 100,
			RetryAttempts:  3,
			RetryDelay:     200 * time.Millisecond,
		},
		Mail: config.MailConfig{Port: 587},
	}).WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
		tasks:  newTaskRegistry(),
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithReviewService(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithOverdueSweep(ctx, app); err != nil {
		panic(err)
	}

	serverCfg := app.Config().GetServer()
	addr := fmt.Sprintf("%s:%s", serverCfg.Host, serverCfg.Port)
	log.Printf("Starting server on http://%s\n", addr)
	app.srv.Serve(addr)

	WaitExitSignal()
	app.scheduler.Stop()
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config().GetPersistence()
	dsn := cfg.GetServer()
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return err
	}

	persistence.RegisterModel((*permission.Record)(nil))
	persistence.RegisterModel((*ledger.AssignmentRecord)(nil))
	persistence.RegisterModel((*ledger.EventRecord)(nil))
	persistence.RegisterModel((*ledger.BacklogRecord)(nil))

	bunClient, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}
	bunClient.SetLogger(app.GetLogger("persistence"))

	for _, migrationsFS := range migrations.Filesystems() {
		bunClient.RegisterDialectMigrations(
			migrationsFS,
			persistence.WithDialectSourceLabel("."),
			persistence.WithValidationTargets("postgres", "sqlite"),
		)
	}

	if err := bunClient.ValidateDialects(ctx); err != nil {
		log.Printf("Warning: dialect validation failed: %v", err)
	}

	if err := bunClient.Migrate(ctx); err != nil {
		return err
	}

	if report := bunClient.Report(); report != nil && !report.IsZero() {
		app.GetLogger("persistence").Info("migrations applied", "report", report.String())
	}

	app.bunDB = bunClient.DB()
	return migrations.ValidateSchema(ctx, app.bunDB.DB, cfg.GetDriver())
}

func WithReviewService(ctx context.Context, app *App) error {
	cfg := app.Config()

	directory, err := newStaticDirectory(cfg.Reviewers)
	if err != nil {
		return err
	}
	app.directory = directory

	profiles, err := permission.NewRepository(permission.RepositoryConfig{DB: app.bunDB},
		permission.WithCache(cfg.Engine.CacheProfiles))
	if err != nil {
		return err
	}
	ledgerRepo, err := ledger.NewRepository(ledger.RepositoryConfig{DB: app.bunDB})
	if err != nil {
		return err
	}

	hooksLogger := app.GetLogger("hooks")
	hooks := types.Hooks{
		AfterAssignmentChange: func(_ context.Context, change types.AssignmentChange) {
			hooksLogger.Info("assignment changed",
				"assignment_id", change.Assignment.ID,
				"from", change.Event.FromStatus,
				"to", change.Event.ToStatus)
		},
		AfterBacklogChange: func(_ context.Context, entry types.BacklogEntry) {
			hooksLogger.Info("backlog changed", "review_task_id", entry.ReviewTaskID)
		},
	}

	if cfg.Mail.Enabled() {
		notifier, err := notify.New(notify.Config{
			From: cfg.Mail.From,
			Sender: notify.NewDialer(notify.SMTPConfig{
				Host:          cfg.Mail.Host,
				Port:          cfg.Mail.Port,
				Username:      cfg.Mail.Username,
				Password:      cfg.Mail.Password,
				SkipTLSVerify: cfg.Mail.SkipTLSVerify,
			}),
			Recipients: directory,
			BaseURL:    cfg.Mail.BaseURL,
			Logger:     &loggerAdapter{app.GetLogger("notify")},
		})
		if err != nil {
			return err
		}
		hooks = notifier.Attach(hooks)
	}

	svc := reviewers.New(reviewers.Config{
		Profiles:         profiles,
		Assignments:      ledgerRepo,
		Directory:        directory,
		Tasks:            app.tasks,
		FeatureGate:      newFeatureGate(cfg.Features, app.GetLogger("features")),
		Hooks:            hooks,
		Logger:           &loggerAdapter{app.GetLogger("reviews")},
		SelectorStrategy: selector.Strategy(cfg.Engine.Strategy),
		UpcomingWindow:   cfg.Engine.UpcomingWindow,
		Sweep: reviewers.SweepConfig{
			Schedule:        cfg.Engine.SweepSchedule,
			BatchSize:       cfg.Engine.SweepBatchSize,
			ReassignOverdue: cfg.Engine.ReassignOverdue,
			RetryAttempts:   cfg.Engine.RetryAttempts,
			RetryDelay:      cfg.Engine.RetryDelay,
			OnOverdue: func(_ context.Context, assignment types.Assignment) {
				hooksLogger.Info("assignment overdue",
					"assignment_id", assignment.ID,
					"reviewer_id", assignment.ReviewerID)
			},
		},
	})

	if err := svc.HealthCheck(ctx); err != nil {
		return err
	}
	app.reviews = svc
	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		})
	})
	srv.Router().WithLogger(app.GetLogger("router"))

	handlers, err := api.NewHandlers(api.Config{
		Engine: app.reviews,
		Logger: &loggerAdapter{app.GetLogger("api")},
	})
	if err != nil {
		return err
	}

	api.Register(srv.Router(), handlers)
	registerTaskRoutes(srv.Router(), app.tasks)

	admin := srv.Router().Group("/api")
	controllers := api.RegisterCRUD(admin, api.CRUDConfig{
		DB:       app.bunDB,
		Commands: app.reviews.Commands(),
		Queries:  app.reviews.Queries(),
		Logger:   &loggerAdapter{app.GetLogger("crud")},
	})

	catalog := schema.NewCatalog(
		schema.WithInfo(router.OpenAPIInfo{
			Title:       "go-reviewers Admin Schemas",
			Version:     "1.0.0",
			Description: "CRUD schemas for review assignments and permission profiles",
		}),
		schema.WithTags("reviews", "admin"),
	)
	schemaLogger := app.GetLogger("schema")
	catalog.OnChange(func(names []string) {
		schemaLogger.Info("schema catalog updated", "resources", names)
	})
	catalog.Register(controllers...)
	admin.Get("/schemas", catalog.Handler())

	app.srv = srv
	return nil
}

func WithOverdueSweep(_ context.Context, app *App) error {
	sweep := app.reviews.Commands().OverdueSweep
	handler := sweep.CronHandler()
	sweepLogger := app.GetLogger("sweep")

	scheduler := cron.New()
	err := scheduler.AddFunc(sweep.CronOptions().Expression, func() {
		if err := handler(); err != nil {
			sweepLogger.Error("overdue sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	app.scheduler = scheduler
	return nil
}

type loggerAdapter struct {
	l glog.Logger
}

func (a *loggerAdapter) Debug(msg string, args ...any) {
	a.l.Debug(msg, args...)
}

func (a *loggerAdapter) Info(msg string, args ...any) {
	a.l.Info(msg, args...)
}

func (a *loggerAdapter) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"error", err}, args...)
	}
	a.l.Error(msg, args...)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
