package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campusevents/internal/attendance"
	"campusevents/internal/config"
	"campusevents/internal/events"
	"campusevents/internal/handler"
	"campusevents/internal/httpmiddleware"
	"campusevents/internal/logging"
	"campusevents/internal/notify"
	"campusevents/internal/store"
	"campusevents/internal/users"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

type backends struct {
	events        events.Store
	attendance    attendance.Store
	notifications notify.Store
	users         attendance.StudentDirectory
	health        map[string]handler.HealthCheck
	close         func()
}

func openBackends(ctx context.Context, cfg config.App, logger *zap.Logger) (backends, error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory stores; data is lost on restart", zap.Int("seed_users", len(cfg.SeedUsers)))
		return backends{
			events:        events.NewMemoryRepository(),
			attendance:    attendance.NewMemoryRepository(),
			notifications: notify.NewMemoryRepository(),
			users:         users.NewMemoryDirectory(cfg.SeedUsers...),
			health:        map[string]handler.HealthCheck{},
			close:         func() {},
		}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := store.NewDB(pingCtx, cfg.DatabaseURL)
	if err != nil {
		return backends{}, err
	}
	if cfg.MigrateOnStart {
		if err := store.Migrate(ctx, db.Client); err != nil {
			_ = db.Close()
			return backends{}, err
		}
		logger.Info("schema migrated")
	}
	return backends{
		events:        events.NewRepository(db.Client),
		attendance:    attendance.NewRepository(db.Client),
		notifications: notify.NewRepository(db.Client),
		users:         users.NewRepository(db.Client),
		health:        map[string]handler.HealthCheck{"db": db.Healthy},
		close:         func() { _ = db.Close() },
	}, nil
}

// newLimiter builds the request limiter. Redis is only dialled, and only
// reported by /healthz, when it backs the limiter.
func newLimiter(cfg config.App, health map[string]handler.HealthCheck) (httpmiddleware.Limiter, func()) {
	if cfg.RateLimitBackend != "redis" {
		return httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin), func() {}
	}
	rc := store.NewRedis(cfg.RedisAddr)
	health["redis"] = rc.Healthy
	return httpmiddleware.NewRedisWindow(rc.Client, cfg.RateLimitPerMin), func() { _ = rc.Close() }
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()

	be, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	limiter, closeLimiter := newLimiter(cfg, be.health)
	defer closeLimiter()

	dispatcher := notify.NewDispatcher(be.notifications, logger.Named("notify"))
	manager := events.NewManager(be.events, dispatcher, logger.Named("events"))
	recorder := attendance.NewService(be.attendance, be.events, be.users, logger.Named("attendance"))

	r := handler.NewRouter(handler.RouterConfig{
		Handler:        handler.New(manager, recorder, dispatcher, logger.Named("http")),
		Log:            logger.Named("access"),
		SigningKey:     cfg.JWTSigningKey,
		Issuer:         cfg.JWTIssuer,
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		Health:         be.health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}
