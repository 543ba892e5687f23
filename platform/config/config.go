// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetDedupScanInterval() time.Duration
}

// ScoringConfig provides settings for the external scoring service client.
type ScoringConfig interface {
	GetScoringURL() string
	GetScoringTimeout() time.Duration
}

// PartnersConfig provides settings for the partner directory cache.
type PartnersConfig interface {
	GetPartnerCacheTTL() time.Duration
	GetRedisURL() string
}

// DedupeConfig provides settings for lead deduplication.
type DedupeConfig interface {
	GetDedupeWindowMinutes() int
}

// RulesConfig provides settings for the CRM event rule table.
type RulesConfig interface {
	GetRulesFile() string
}

// =============================================================================
// Config struct
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	RedisURL            string
	ScoringURL          string
	ScoringTimeout      time.Duration
	CORSAllowAll        bool
	CORSOrigins         []string
	DedupeWindowMinutes int
	PartnerCacheTTL     time.Duration
	RulesFile           string
	AsynqQueueName      string
	AsynqConcurrency    int
	DedupScanInterval   time.Duration
}

// Load reads configuration from the environment, with .env support for
// local development. Missing required values return an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                 getEnv("ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		ScoringURL:          getEnv("SCORING_URL", "http://localhost:8001"),
		ScoringTimeout:      getDuration("SCORING_TIMEOUT", 15*time.Second),
		CORSAllowAll:        getBool("CORS_ALLOW_ALL", true),
		CORSOrigins:         getList("CORS_ORIGINS"),
		DedupeWindowMinutes: getInt("LEAD_DEDUPE_WINDOW_MINUTES", 60),
		PartnerCacheTTL:     getDuration("PARTNER_CACHE_TTL", 15*time.Second),
		RulesFile:           os.Getenv("CRM_RULES_FILE"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    getInt("ASYNQ_CONCURRENCY", 10),
		DedupScanInterval:   getDuration("DEDUP_SCAN_INTERVAL", 6*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// The grouper clamps again; clamping here keeps config introspection honest.
	if cfg.DedupeWindowMinutes < 1 {
		cfg.DedupeWindowMinutes = 1
	}
	if cfg.DedupeWindowMinutes > 24*60 {
		cfg.DedupeWindowMinutes = 24 * 60
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Interface implementations.

func (c *Config) GetDatabaseURL() string              { return c.DatabaseURL }
func (c *Config) GetHTTPAddr() string                 { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool               { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string            { return c.CORSOrigins }
func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string           { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int            { return c.AsynqConcurrency }
func (c *Config) GetDedupScanInterval() time.Duration { return c.DedupScanInterval }
func (c *Config) GetScoringURL() string               { return c.ScoringURL }
func (c *Config) GetScoringTimeout() time.Duration    { return c.ScoringTimeout }
func (c *Config) GetPartnerCacheTTL() time.Duration   { return c.PartnerCacheTTL }
func (c *Config) GetDedupeWindowMinutes() int         { return c.DedupeWindowMinutes }
func (c *Config) GetRulesFile() string                { return c.RulesFile }
