package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/app"
	"github.com/fulfilhub/dashboard/internal/auth"
	"github.com/fulfilhub/dashboard/internal/dashboard"
	"github.com/fulfilhub/dashboard/internal/observability"
	"github.com/fulfilhub/dashboard/internal/platform/cache"
	"github.com/fulfilhub/dashboard/internal/platform/db"
	"github.com/fulfilhub/dashboard/internal/query"
	"github.com/fulfilhub/dashboard/internal/rbac"
	"github.com/fulfilhub/dashboard/internal/resources"
	"github.com/fulfilhub/dashboard/internal/shared"
	"github.com/fulfilhub/dashboard/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	catalog := resources.DefaultCatalog()
	policy, err := rbac.LoadPolicy(cfg.AccessPolicyFile)
	if err != nil {
		logger.Error("load access policy", slog.Any("error", err))
		os.Exit(1)
	}
	if err := policy.Validate(catalog.Names()); err != nil {
		logger.Error("validate access policy", slog.Any("error", err))
		os.Exit(1)
	}
	gate, err := rbac.NewGate(policy, logger, metrics)
	if err != nil {
		logger.Error("init access gate", slog.Any("error", err))
		os.Exit(1)
	}

	store, closeStore, err := openQueryStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open query cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()
	queryCache := query.NewCache(store,
		query.WithStaleTime(cfg.CacheStaleTime),
		query.WithRecorder(metrics),
		query.WithLogger(logger))

	var audit shared.AuditRecorder = shared.SlogAuditLogger{Logger: logger}
	if cfg.AuditPGDSN != "" {
		pool, err := db.New(ctx, cfg.AuditPGDSN, cfg.AuditPGMaxConns)
		if err != nil {
			logger.Error("connect audit database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate audit database", slog.Any("error", err))
			os.Exit(1)
		}
		audit = shared.NewPGAuditLogger(pool)
	}

	client := api.NewClient(cfg.BackendURL, cfg.BackendTimeout, api.WithObserver(metrics))
	service, err := resources.NewService(client, queryCache, catalog, audit, logger)
	if err != nil {
		logger.Error("init resource service", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret, cfg.IsProduction())
	cookies := shared.CookieOptions{TTL: cfg.SessionTTL, Secure: cfg.IsProduction()}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CSRFManager:      csrfManager,
		Gate:             gate,
		AuthHandler:      auth.NewHandler(logger, auth.NewService(client), templates, csrfManager, cookies, cfg.LoginRateLimit),
		DashboardHandler: dashboard.NewHandler(logger, service, policy, templates, csrfManager),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("backend", client.BaseURL()),
			slog.String("cache_driver", cfg.CacheDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// openQueryStore picks the cache backend from CACHE_DRIVER. The returned func
// releases the Redis connection when one was opened.
func openQueryStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (query.Store, func(), error) {
	if cfg.CacheDriver != app.CacheDriverRedis {
		return query.NewMemoryStore(cfg.CacheSize, cfg.CacheTTL), func() {}, nil
	}
	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	return query.NewRedisStore(client, cfg.CacheTTL), closeFn, nil
}
