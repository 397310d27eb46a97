package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postcast/configs"
	"github.com/maheshrc27/postcast/internal/api/handlers"
	"github.com/maheshrc27/postcast/internal/api/middleware"
	job "github.com/maheshrc27/postcast/internal/jobs"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/publisher"
	"github.com/maheshrc27/postcast/internal/queue"
	"github.com/maheshrc27/postcast/internal/repository"
	"github.com/maheshrc27/postcast/internal/scheduler"
	"github.com/maheshrc27/postcast/internal/service"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure media storage: %v", err)
	}

	httpClient := publisher.NewHTTPClient(cfg.Scheduler.PlatformTimeout)
	registry := service.NewPublisherRegistry(*cfg, httpClient)
	policy := models.RetryPolicy{
		MaxRetries:      cfg.Scheduler.MaxRetries,
		BackoffInterval: cfg.Scheduler.RetryBackoff,
	}

	orchestrator := scheduler.NewOrchestrator(postRepo, socialAccountRepo, historyRepo, registry, policy, nil)
	selector := scheduler.NewSelector(postRepo, socialAccountRepo)
	reconciler := scheduler.NewReconciler(postRepo, socialAccountRepo, registry, cfg.Scheduler.SyncPacing, nil)

	postService := service.NewPostService(db, postRepo, historyRepo, r2Service)
	accountService := service.NewAccountService(socialAccountRepo)
	tokenService := service.NewTokenService(*cfg, socialAccountRepo, httpClient)

	// cron jobs
	cronScheduler := job.NewScheduler(
		job.Specs{
			Publish:      cfg.Scheduler.PublishCron,
			Sync:         cfg.Scheduler.SyncCron,
			TokenRefresh: cfg.Scheduler.TokenRefreshCron,
		},
		job.NewPublishJob(selector, orchestrator, cfg.Scheduler.PublishConcurrency),
		job.NewEngagementSyncJob(reconciler, cfg.Scheduler.SyncWindowDays, cfg.Scheduler.SyncBatchLimit),
		job.NewTokenRefreshJob(socialAccountRepo, tokenService),
	)

	//queue
	queueW := queue.NewQueue(orchestrator)
	queueServer := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.Scheduler.PublishConcurrency,
		Logger:      asynqLogger{},
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "err", err)
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "scheduler": cronScheduler.Running()})
	})

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	handlers.NewPostHandler(postService, queue.NewClient(client, inspector)).Register(api)
	handlers.NewAccountHandler(accountService).Register(api)

	if err := cronScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting the asynq server")
		if err := queueServer.Start(queueW.Mux()); err != nil {
			return fmt.Errorf("asynq server: %w", err)
		}
		<-gctx.Done()
		queueServer.Shutdown()
		return nil
	})

	g.Go(func() error {
		slog.Info("server is running", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("failed to shut down http server", "err", err)
		}
		if err := cronScheduler.Stop(shutdownCtx); err != nil {
			slog.Error("scheduler did not stop in time", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "err", err)
	}
	slog.Info("server shutdown complete")
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { slog.Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { slog.Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { slog.Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { slog.Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) {
	slog.Error(fmt.Sprint(args...))
	os.Exit(1)
}
