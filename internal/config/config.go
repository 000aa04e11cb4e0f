// Package config loads server configuration from the environment, with an
// optional .env file for development. Every knob has a default except the
// ones that guard security (JWT secret) or point at external systems
// (database URL); those fail fast at startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// SMTP holds mail transport settings. When Host is empty the email service
// falls back to logging message bodies instead of sending them.
type SMTP struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Config is everything the server needs to start.
type Config struct {
	Port        int
	DatabaseURL string
	JWTSecret   string
	UploadDir   string
	LogLevel    slog.Level
	SMTP        SMTP

	// GitHub OAuth for researcher sign-in. Empty client ID disables the
	// OAuth routes; password login still works.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first (without overriding real env vars), matching
// the setup wizard's output format.
func Load() (Config, error) {
	// Ignore a missing .env; env vars alone are a complete configuration.
	_ = godotenv.Load()

	cfg := Config{
		Port:               8080,
		UploadDir:          "data/uploads",
		LogLevel:           slog.LevelInfo,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", v, err)
		}
		cfg.LogLevel = lvl
	}

	cfg.SMTP = SMTP{
		Host: os.Getenv("SMTP_HOST"),
		Port: 587,
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: os.Getenv("SMTP_FROM"),
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid SMTP_PORT %q: %w", v, err)
		}
		cfg.SMTP.Port = port
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}
