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

	"returnremind/internal/clock"
	"returnremind/internal/config"
	"returnremind/internal/database"
	"returnremind/internal/handlers"
	"returnremind/internal/services"
	"returnremind/internal/store"
	"returnremind/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := utils.InitLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.NewSystem(loc)

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var transport services.EmailTransport
	if cfg.EmailEnabled {
		transport = services.NewEmailService(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, cfg.EmailTimeout)
		logger.Info("email delivery enabled", "from", cfg.EmailFrom)
	} else {
		logger.Info("email delivery disabled, reminders will be logged only")
	}
	dispatcher := services.NewDispatcher(transport, logger)

	var lock services.SweepLock = services.NewLocalLock()
	if cfg.RedisAddr != "" {
		redisLock, err := services.NewRedisLock(cfg.RedisAddr, cfg.RedisPassword, "")
		if err != nil {
			return err
		}
		defer redisLock.Close()
		lock = redisLock
		logger.Info("sweep lock backed by redis", "addr", cfg.RedisAddr)
	}

	reminderWorker := services.NewReminderWorker(st, dispatcher, lock, clk, logger, services.ReminderWorkerConfig{
		Interval:    cfg.ReminderSweepInterval,
		Concurrency: cfg.ReminderSweepConcurrency,
		LockTTL:     cfg.SweepLockTTL,
	})
	archiveWorker, err := services.NewArchiveWorker(st, clk, logger, cfg.ArchiveSweepSchedule)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	h := handlers.New(services.NewUserService(st, clk), services.NewPurchaseService(st, clk), logger)
	router, err := handlers.NewRouter(h, handlers.RouterConfig{AllowedOrigins: cfg.CORSAllowedOrigins}, logger)
	if err != nil {
		return err
	}

	reminderWorker.Start(ctx)
	archiveWorker.Start(ctx)
	logger.Info("background workers started",
		"reminder_interval", cfg.ReminderSweepInterval,
		"archive_schedule", cfg.ArchiveSweepSchedule,
		"timezone", loc.String())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		stop()
		reminderWorker.Wait()
		archiveWorker.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	reminderWorker.Wait()
	archiveWorker.Wait()
	logger.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Open(cfg.DSN(), logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return store.NewGormStore(db), closeFn, nil
}
