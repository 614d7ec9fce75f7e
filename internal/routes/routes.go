package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/musicmoon/marketplace/internal/auth"
	"github.com/musicmoon/marketplace/internal/catalog"
	"github.com/musicmoon/marketplace/internal/config"
	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/media"
	"github.com/musicmoon/marketplace/internal/metrics"
	"github.com/musicmoon/marketplace/internal/middleware"
	"github.com/musicmoon/marketplace/internal/notification"
	"github.com/musicmoon/marketplace/internal/wallet"
)

// resolveConcurrency bounds concurrent identity lookups per catalog load.
const resolveConcurrency = 8

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Media    media.Store
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce backing services outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Media == nil {
			return fmt.Errorf("object storage is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = metrics.NewRegistry()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", metrics.Handler(d.Registry))

	// Stores
	var (
		identityRepo identity.Repository
		itemRepo     catalog.Repository
	)
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		itemRepo = catalog.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		itemRepo = catalog.NewMemoryRepository()
	}
	store := d.Media
	if store == nil {
		store = media.NewMemoryStore()
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(identityRepo, identity.WithCallTimeout(d.Cfg.CallTimeout))
	engine := catalog.NewEngine(itemRepo, catalog.NewResolver(identitySvc, resolveConcurrency), catalog.EngineConfig{
		Notifier:    notifier,
		Logger:      d.Logger,
		Observer:    metrics.NewCatalog(d.Registry),
		CallTimeout: d.Cfg.CallTimeout,
	})
	catalogSvc := catalog.NewService(itemRepo, engine, store, identitySvc, catalog.ServiceConfig{
		Notifier:    notifier,
		Logger:      d.Logger,
		CallTimeout: d.Cfg.CallTimeout,
	})
	tokens := auth.NewService(d.Cfg)

	authHandler := auth.NewHandler(identitySvc, tokens, d.Logger)
	identityHandler := identity.NewHandler(identitySvc)
	catalogHandler := catalog.NewHandler(engine, catalogSvc)
	walletHandler := wallet.NewHandler(identitySvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit))
	RegisterCatalogRoutes(api, catalogHandler)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(tokens))
	idempotency := middleware.Idempotency(d.Cache, middleware.IdempotencyConfig{TTL: d.Cfg.IdempotencyTTL}, d.Logger)
	RegisterCatalogMutationRoutes(protected, catalogHandler, idempotency)
	RegisterIdentityRoutes(protected, identityHandler)
	RegisterWalletRoutes(protected, walletHandler)

	return nil
}
