package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultJWTAccessTTL    = "15m"
	defaultElevatedTTL     = "10m"
	defaultIdentityTimeout = "10s"
	defaultProfileTimeout  = "5s"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultPanelCode       = "dispatch-panel-0000"
	defaultIdentityMode    = "embedded"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret    string
	JWTAccessTTL time.Duration
	ElevatedTTL  time.Duration

	// PanelCode gates navigation into the management surface. It is a
	// client-side speed bump, not an authorization boundary; real access
	// control is the admin role plus the elevated session flag.
	PanelCode string

	IdentityMode    string // "embedded" or "remote"
	IdentityBaseURL string
	IdentityAPIKey  string
	IdentityTimeout time.Duration

	// ProfileWriteTimeout bounds best-effort profile projection writes.
	ProfileWriteTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.PanelCode = strings.TrimSpace(getEnv("PANEL_CODE", defaultPanelCode))

	cfg.IdentityMode = strings.ToLower(strings.TrimSpace(getEnv("IDENTITY_MODE", defaultIdentityMode)))
	cfg.IdentityBaseURL = strings.TrimSpace(os.Getenv("IDENTITY_BASE_URL"))
	cfg.IdentityAPIKey = strings.TrimSpace(os.Getenv("IDENTITY_API_KEY"))

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}
	cfg.ElevatedTTL, err = parseDurationEnv("ELEVATED_TTL", defaultElevatedTTL)
	if err != nil {
		return nil, err
	}
	cfg.IdentityTimeout, err = parseDurationEnv("IDENTITY_TIMEOUT", defaultIdentityTimeout)
	if err != nil {
		return nil, err
	}
	cfg.ProfileWriteTimeout, err = parseDurationEnv("PROFILE_WRITE_TIMEOUT", defaultProfileTimeout)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.ElevatedTTL <= 0 {
		return fmt.Errorf("ELEVATED_TTL must be > 0")
	}
	if cfg.ProfileWriteTimeout <= 0 {
		return fmt.Errorf("PROFILE_WRITE_TIMEOUT must be > 0")
	}

	switch cfg.IdentityMode {
	case "embedded":
	case "remote":
		if cfg.IdentityBaseURL == "" {
			return fmt.Errorf("IDENTITY_BASE_URL must be set when IDENTITY_MODE=remote")
		}
		if cfg.IdentityAPIKey == "" {
			return fmt.Errorf("IDENTITY_API_KEY must be set when IDENTITY_MODE=remote")
		}
	default:
		return fmt.Errorf("IDENTITY_MODE must be embedded or remote, got %q", cfg.IdentityMode)
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.PanelCode, defaultPanelCode) {
			return fmt.Errorf("in prod/release PANEL_CODE must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func getEnv(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
