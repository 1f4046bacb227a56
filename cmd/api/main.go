package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hrcore/internal/auth"
	"hrcore/internal/config"
	"hrcore/internal/httpserver"
	"hrcore/internal/logger"
	"hrcore/internal/mail"
	"hrcore/internal/models"
	"hrcore/internal/seed"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		lg.Fatalw("JWT_SECRET is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.Permission{}, &models.Role{}, &models.User{},
		&models.RefreshToken{}, &models.PasswordResetToken{}, &models.AuditLog{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	if err := seed.Run(db, lg); err != nil {
		lg.Fatalw("seed failed", "error", err)
	}

	router := httpserver.NewRouter(db, lg, cfg, auth.NewMemoryRevocationList(), mail.LogMailer{Lg: lg})
	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}
