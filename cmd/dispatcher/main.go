package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"MailMinder/internal/config"
	"MailMinder/internal/dispatch"
	"MailMinder/internal/email"
	"MailMinder/internal/metrics"
	"MailMinder/internal/schedule"
	"MailMinder/internal/store"
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

	// Credentials are read once here and reused for every send.
	if cfg.EmailSender == "" || cfg.EmailPass == "" {
		logger.Fatal("EMAIL_SENDER and EMAIL_PASS must be set")
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

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Email Sender
	// ------------------------------------------------
	sender := &email.Sender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.EmailSender,
		Password: cfg.EmailPass,
		Log:      logger,
	}

	// ------------------------------------------------
	// Dispatcher
	// ------------------------------------------------
	dispatcher := &dispatch.Dispatcher{
		Queue:     schedule.New(st),
		Transport: sender,
		Limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
		Log:       logger,
		Interval:  time.Duration(cfg.PollSeconds) * time.Second,
	}

	dispatcher.Run(ctx)

	// ------------------------------------------------
	// Shutdown
	// ------------------------------------------------
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("dispatcher shutdown complete")
}
