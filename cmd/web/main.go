package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"MailMinder/internal/config"
	"MailMinder/internal/schedule"
	"MailMinder/internal/store"
	"MailMinder/internal/timeutil"
	"MailMinder/internal/web"
)

func main() {

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Document Store
	// ------------------------------------------------
	st, err := store.New(cfg.DataDir, time.Duration(cfg.LockTimeoutSec)*time.Second)
	if err != nil {
		logger.Fatal("store initialization failed", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.AttachmentsDir, 0o755); err != nil {
		logger.Fatal("attachments directory creation failed", zap.Error(err))
	}

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	queue := schedule.New(st)
	loc := timeutil.AppLocation(cfg.AppTimezone)

	handler := web.NewHandler(st, queue, logger, cfg.AttachmentsDir, loc)
	app := web.NewApp(handler)

	go func() {
		logger.Info("web server started", zap.String("port", cfg.APIPort))
		if err := app.Listen(":" + cfg.APIPort); err != nil {
			logger.Fatal("web server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down web server...")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Error("web shutdown failed", zap.Error(err))
	}

	logger.Info("web process shutdown complete")
}
