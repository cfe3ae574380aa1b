package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"campusevents/internal/config"
	"campusevents/internal/events"
	"campusevents/internal/logging"
	"campusevents/internal/notify"
	"campusevents/internal/reminder"
	"campusevents/internal/store"
)

// Worker runs the reminder sweep on a cron schedule.
func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	db, err := store.NewDB(pingCtx, cfg.DatabaseURL)
	pingCancel()
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable; sweeps will fail until it is", zap.String("addr", cfg.RedisAddr))
	}

	sweeper := reminder.NewSweeper(
		events.NewRepository(db.Client),
		notify.NewDispatcher(notify.NewRepository(db.Client), logger.Named("notify")),
		redisClient,
		cfg.ReminderLead,
		logger.Named("reminder"),
	)

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.ReminderCron, func() {
		if _, err := sweeper.Sweep(ctx); err != nil {
			logger.Error("reminder sweep failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("invalid reminder schedule", zap.String("cron", cfg.ReminderCron), zap.Error(err))
	}

	c.Start()
	logger.Info("worker started",
		zap.String("cron", cfg.ReminderCron),
		zap.Duration("lead", cfg.ReminderLead))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("worker stopped")
}
