package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/CourseFox/app/controllers"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/accounts"
	"github.com/ManuelReschke/CourseFox/internal/pkg/billing"
	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
	"github.com/ManuelReschke/CourseFox/internal/pkg/identity"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/ManuelReschke/CourseFox/internal/pkg/notify"
	"github.com/ManuelReschke/CourseFox/internal/pkg/ordering"
	"github.com/ManuelReschke/CourseFox/internal/pkg/reconciler"
	"github.com/ManuelReschke/CourseFox/internal/pkg/router"
	"github.com/ManuelReschke/CourseFox/internal/pkg/statistics"
	"github.com/ManuelReschke/CourseFox/internal/pkg/webhook"
)

func main() {
	env.SetupEnvFile()

	cfg, err := env.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	app, cleanup, err := NewApplication(cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer cleanup()

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)
		log.Info("listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatal("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// NewApplication builds every dependency and the fiber app. The returned cleanup closes
// what the application opened.
func NewApplication(cfg *env.Config, log *logger.Logger) (*fiber.App, func(), error) {
	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	var (
		guard      cache.DeliveryGuard = cache.NoopGuard{}
		statsCache statistics.Cache
		rdb        *redis.Client
	)
	if cfg.CacheHost != "" {
		rdb = cache.NewClient(context.Background(), cfg.CacheHost, cfg.CachePort, cfg.CachePassword, log)
		guard = cache.NewRedisGuard(rdb, cache.DeliveryTTL)
		statsCache = cache.NewStore(rdb)
	}

	identityVerifier, err := webhook.NewVerifier(cfg.IdentityWebhookKey, cfg.WebhookTolerance)
	if err != nil {
		return nil, nil, fmt.Errorf("identity webhook secret: %w", err)
	}
	paymentVerifier, err := webhook.NewVerifier(cfg.PaymentWebhookKey, cfg.WebhookTolerance)
	if err != nil {
		return nil, nil, fmt.Errorf("payment webhook secret: %w", err)
	}
	sessions, err := middleware.NewSessionVerifier(cfg.IdentityJWTPublicKey)
	if err != nil {
		return nil, nil, err
	}

	repos := repository.NewFactory(db).GetRepositories()
	accountSvc := accounts.NewService(db, repos.User, identity.NewClient(cfg.IdentitySecretKey, cfg.IdentityAPIBaseURL), log)
	billingSvc := billing.NewService(db, billing.NewRepository(db),
		billing.NewPaymentClient(cfg.PaymentSecretKey, cfg.PaymentAPIBaseURL),
		notify.New(cfg.AMQPURL, log), cfg.ServerURL, log)
	stats := statistics.NewService(db, statsCache, log)

	rec := reconciler.New(reconciler.Options{
		IdentityVerifier: identityVerifier,
		PaymentVerifier:  paymentVerifier,
		Accounts:         accountSvc,
		Fulfiller:        billingSvc,
		Guard:            guard,
		Observer:         stats,
		Log:              log,
	})

	app := fiber.New(fiber.Config{
		AppName:   "CourseFox",
		BodyLimit: 1 << 20,
	})
	app.Use(recover.New(), fiberlogger.New(), cors.New(cors.Config{
		AllowOrigins:     cfg.ServerURL,
		AllowCredentials: true,
	}))

	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./docs/openapi.yml",
		Path:     "v1",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	router.InstallRouter(app, &router.Dependencies{
		Auth:     middleware.NewAuthenticator(sessions, repos.User, log),
		Webhooks: controllers.NewWebhookController(rec),
		AdminContent: controllers.NewAdminContentController(repos.Course,
			ordering.NewManager(db, ordering.Sections, log),
			ordering.NewManager(db, ordering.Lessons, log), log),
		Admin:          controllers.NewAdminController(repos, stats, log),
		Billing:        controllers.NewBillingController(billingSvc, log),
		Progress:       controllers.NewProgressController(repos.Course, repos.Progress, log),
		Users:          controllers.NewUserController(accountSvc, repos.User, log),
		LimiterStorage: cache.NewLimiterStorage(cfg.CacheHost, cfg.CachePort, cfg.CachePassword),
	})

	cleanup := func() {
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Warn("closing cache client failed", "error", err)
			}
		}
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("closing database failed", "error", err)
			}
		}
	}
	return app, cleanup, nil
}
