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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/auth"
	"devcollab/platform-backend/internal/config"
	"devcollab/platform-backend/internal/database"
	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/internal/logging"
	"devcollab/platform-backend/internal/messages"
	"devcollab/platform-backend/internal/metrics"
	"devcollab/platform-backend/internal/middleware"
	"devcollab/platform-backend/internal/notifications"
	"devcollab/platform-backend/internal/projects"
	"devcollab/platform-backend/internal/settings"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	// .env is optional; real environment variables win.
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

	// Connect to database
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.SQL.DB, logger); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	registry := metrics.New()
	issuer := identity.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	// Accounts and profiles
	authRepo := auth.NewRepository(db.Gorm)
	authHandler := auth.NewHandler(auth.NewService(authRepo, issuer, cfg.Security.BcryptCost, logger), logger)
	settingsHandler := settings.NewHandler(settings.NewService(authRepo, logger), logger)

	// Notifications
	notificationService := notifications.NewService(
		notifications.NewRepository(db.SQL), cfg.Notifications.DefaultLimit, logger)
	notificationHandler := notifications.NewHandler(notificationService, logger)
	sink := registry.WrapSink(notificationService)

	// Messages between owners and applicants
	messageHandler := messages.NewHandler(
		messages.NewService(messages.NewRepository(db.SQL), sink, logger), logger)

	// Project lifecycle
	projectRepo := projects.NewRepository(db.Gorm)
	engine := projects.NewEngine(projectRepo, sink, logger,
		projects.WithMetrics(registry))
	projectHandler := projects.NewHandler(engine, projects.NewQueries(projectRepo, logger), logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	stopCleanup := make(chan struct{})
	limiter.StartCleanup(time.Minute, stopCleanup)
	defer close(stopCleanup)

	// Setup Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg.Server.CORSOrigins),
		registry.Middleware(),
	)

	requireAuth := issuer.Authenticate()
	api := router.Group("/api/v1")
	api.Use(issuer.Identify(), limiter.Handler())
	{
		authHandler.RegisterRoutes(api, requireAuth)
		projectHandler.RegisterRoutes(api, requireAuth, issuer.Identify())

		private := api.Group("", requireAuth)
		settingsHandler.RegisterRoutes(private)
		notificationHandler.RegisterRoutes(private)
		messageHandler.RegisterRoutes(private)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := db.SQL.PingContext(c.Request.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now(),
		})
	})
	router.GET("/metrics", gin.WrapH(registry.Handler()))

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
