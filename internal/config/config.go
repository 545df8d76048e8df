/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string // Public base URL (e.g., https://hearth.example.com)
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string

	// Maintenance sweep configuration
	SweepCron    string // cron spec for the daily due-schedule sweep
	SweepOnStart bool   // run one sweep immediately on startup

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Redis cache configuration (optional)
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Phone-home release check against GitHub; off unless asked for.
	UpdateCheckEnabled bool
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("HEARTH_ENV", "development"),
		HTTPBind:      getEnv("HEARTH_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("HEARTH_HTTP_PORT", 8080),
		BaseURL:       getEnv("HEARTH_BASE_URL", ""),
		DBBackend:     DatabaseBackend(getEnv("HEARTH_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:         getEnv("HEARTH_DB_DSN", ""),
		JWTSigningKey: getEnv("HEARTH_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("HEARTH_METRICS_BIND", "127.0.0.1:9000"),

		SweepCron:    getEnv("HEARTH_SWEEP_CRON", "0 6 * * *"),
		SweepOnStart: getEnvBool("HEARTH_SWEEP_ON_START", false),

		TracingEnabled:    getEnvBool("HEARTH_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("HEARTH_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("HEARTH_TRACING_SAMPLE_RATE", 1.0),

		CacheEnabled:  getEnvBool("HEARTH_CACHE_ENABLED", false),
		RedisAddr:     getEnv("HEARTH_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("HEARTH_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("HEARTH_REDIS_DB", 0),

		UpdateCheckEnabled: getEnvBool("HEARTH_UPDATE_CHECK", false),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("HEARTH_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("HEARTH_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("HEARTH_JWT_SIGNING_KEY must be at least 32 bytes in production")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
