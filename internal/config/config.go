// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package config loads application configuration from environment
// variables, optionally seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDBPassword    = "changeme"
	defaultSessionSecret = "fastodigama-dev-session-secret"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Valkey (sessions and API response cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	SessionSecret    string
	BcryptCost       int
	RegistrationOpen bool

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxy bool

	// Object storage
	StorageDriver string // "s3" or "gcs"

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	GCSBucket          string
	GCSCredentialsJSON string
	GCSPublicURL       string

	// Image pipeline
	ImageProcessor string // "vips" or "go"
	ImageMaxWidth  int
}

// Load reads configuration from the environment. A .env file is applied
// first when present; variables already set in the process win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8888"),
		Env:  envOrDefault("APP_ENV", "development"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:      envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:      envOrDefault("POSTGRES_USER", "fastodigama"),
		DBPassword:  envOrDefault("POSTGRES_PASSWORD", defaultDBPassword),
		DBName:      envOrDefault("POSTGRES_DB", "fastodigama"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		SessionSecret: envOrDefault("SESSION_SECRET", defaultSessionSecret),

		StorageDriver: strings.ToLower(envOrDefault("STORAGE_DRIVER", "s3")),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "auto"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "fastodigama"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
		GCSPublicURL:       os.Getenv("GCS_PUBLIC_URL"),

		ImageProcessor: strings.ToLower(envOrDefault("IMAGE_PROCESSOR", "vips")),
	}

	var err error
	if cfg.BcryptCost, err = envInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.ImageMaxWidth, err = envInt("IMAGE_MAX_WIDTH", 1200); err != nil {
		return nil, err
	}
	if cfg.RegistrationOpen, err = envBool("REGISTRATION_OPEN", true); err != nil {
		return nil, err
	}
	if cfg.TrustProxy, err = envBool("TRUST_PROXY", false); err != nil {
		return nil, err
	}

	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cfg.BcryptCost)
	}
	if cfg.ImageMaxWidth <= 0 {
		return nil, fmt.Errorf("IMAGE_MAX_WIDTH must be positive, got %d", cfg.ImageMaxWidth)
	}
	switch cfg.StorageDriver {
	case "s3", "gcs":
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be s3 or gcs, got %q", cfg.StorageDriver)
	}
	switch cfg.ImageProcessor {
	case "vips", "go":
	default:
		return nil, fmt.Errorf("IMAGE_PROCESSOR must be vips or go, got %q", cfg.ImageProcessor)
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" && cfg.DBPassword == defaultDBPassword {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.SessionSecret == defaultSessionSecret {
			return nil, fmt.Errorf("SESSION_SECRET must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string. DATABASE_URL takes
// precedence over the individual POSTGRES_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// StorageConfigured reports whether the selected storage driver has
// enough settings to be initialised.
func (c *Config) StorageConfigured() bool {
	switch c.StorageDriver {
	case "gcs":
		return c.GCSBucket != ""
	default:
		return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
