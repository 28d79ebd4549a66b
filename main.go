package main

import (
	"os"

	"arthings/internal/config"
	"arthings/internal/database"
	"arthings/internal/email"
	"arthings/internal/handlers"
	"arthings/internal/logger"
	"arthings/internal/metrics"
	"arthings/internal/middleware"
	"arthings/internal/uploads"

	"github.com/gin-gonic/gin"
)

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	cfg := config.Load()
	logger.Initialize(logger.ParseLevel(cfg.LogLevel), cfg.IsDevelopment())

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		fatal("Failed to initialize database", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		fatal("Failed to run migrations", err)
	}

	if cfg.AdminEmail != "" {
		promoted, err := database.PromoteAdmin(db, cfg.AdminEmail)
		switch {
		case err != nil:
			logger.Error("Failed to promote admin", "email", cfg.AdminEmail, "error", err)
		case promoted:
			logger.Info("Admin privileges granted", "email", cfg.AdminEmail)
		default:
			logger.Warn("ADMIN_EMAIL does not match any user yet", "email", cfg.AdminEmail)
		}
	}

	if n, err := database.CleanupExpiredSessions(db); err != nil {
		logger.Warn("Failed to clean up expired sessions", "error", err)
	} else if n > 0 {
		logger.Info("Removed expired sessions", "count", n)
	}

	emailService := email.NewService(cfg)
	if emailService.IsEnabled() {
		logger.Info("Email service enabled with Mailgun")
	} else {
		logger.Info("Email service disabled - Mailgun not configured")
	}

	store, err := uploads.NewStore(cfg.UploadDir, cfg.UploadURLPrefix, cfg.MaxUploadBytes, cfg.MaxImagesPerListing)
	if err != nil {
		fatal("Failed to prepare upload directory", err)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxImagesPerListing) * cfg.MaxUploadBytes

	blocker := middleware.NewBlocker()
	r.Use(middleware.Recovery())
	r.Use(middleware.LogRequests())
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(blocker.IPBlocker(cfg))
	r.Use(blocker.Track404AndBlock(cfg))
	r.Use(middleware.RateLimit(cfg))

	handlers.SetupRoutes(r, db, cfg, emailService, store)

	logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
	if err := r.Run(":" + cfg.Port); err != nil {
		fatal("Server stopped", err)
	}
}
