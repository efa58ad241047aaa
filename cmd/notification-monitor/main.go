// Command notification-monitor measures the unread notification backlog on a
// cron schedule and exports it as Prometheus gauges.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/config"
	"devcollab/platform-backend/internal/database"
	"devcollab/platform-backend/internal/logging"
	"devcollab/platform-backend/internal/metrics"
	"devcollab/platform-backend/internal/notifications"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	once := flag.Bool("once", false, "measure once, log the result and exit")
	metricsAddr := flag.String("metrics-addr", ":9102", "serve /metrics on this address; empty disables it")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Invalid configuration", zap.Error(err))
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	registry := metrics.New()
	monitor := notifications.NewMonitor(
		notifications.NewRepository(db.SQL),
		cfg.Notifications.StaleAfterDays,
		cfg.Notifications.MonitorSchedule,
		logger,
	)
	monitor.OnReport(registry.NotificationBacklog)

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := monitor.RunOnce(ctx); err != nil {
			logger.Fatal("Notification backlog check failed", zap.Error(err))
		}
		return
	}

	var metricsSrv *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", registry.Handler())
		metricsSrv = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	if err := monitor.Start(); err != nil {
		logger.Fatal("Failed to start notification monitor", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down notification monitor...")

	monitor.Stop()
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}
}
