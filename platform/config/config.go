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

// JWTConfig provides JWT validation settings for the admin-context middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SMTPConfig provides settings for outbound email delivery.
type SMTPConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetEmailSendTimeout() time.Duration
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetAgingSweepCron() string
	GetAutomationAdvanceCron() string
}

// AgingConfig provides settings for the lead aging calculator.
type AgingConfig interface {
	GetAgingAlertThresholdDays() int
	GetAgingSweepConcurrency() int
}

// AutomationConfig provides settings for the drip automation engine.
type AutomationConfig interface {
	GetSequenceConfigPath() string
	GetAutomationBatchSize() int
}

// AlertingConfig provides settings for the admin alert dispatcher.
type AlertingConfig interface {
	GetAlertSendInterval() time.Duration
	GetAppBaseURL() string
}

// WebhookConfig provides settings for inbound engagement webhooks.
type WebhookConfig interface {
	GetWebhookDedupeTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	AppBaseURL              string
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromName           string
	EmailFromAddress        string
	EmailSendTimeout        time.Duration
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	AgingSweepCron          string
	AutomationAdvanceCron   string
	AgingAlertThresholdDays int
	AgingSweepConcurrency   int
	SequenceConfigPath      string
	AutomationBatchSize     int
	AlertSendInterval       time.Duration
	WebhookDedupeTTL        time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SMTPConfig implementation
func (c *Config) GetEmailEnabled() bool               { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string                 { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                    { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string             { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string             { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string            { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string         { return c.EmailFromAddress }
func (c *Config) GetEmailSendTimeout() time.Duration  { return c.EmailSendTimeout }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool        { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string        { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int         { return c.AsynqConcurrency }
func (c *Config) GetAgingSweepCron() string        { return c.AgingSweepCron }
func (c *Config) GetAutomationAdvanceCron() string { return c.AutomationAdvanceCron }

// AgingConfig implementation
func (c *Config) GetAgingAlertThresholdDays() int { return c.AgingAlertThresholdDays }
func (c *Config) GetAgingSweepConcurrency() int   { return c.AgingSweepConcurrency }

// AutomationConfig implementation
func (c *Config) GetSequenceConfigPath() string { return c.SequenceConfigPath }
func (c *Config) GetAutomationBatchSize() int   { return c.AutomationBatchSize }

// AlertingConfig implementation
func (c *Config) GetAlertSendInterval() time.Duration { return c.AlertSendInterval }
func (c *Config) GetAppBaseURL() string               { return c.AppBaseURL }

// WebhookConfig implementation
func (c *Config) GetWebhookDedupeTTL() time.Duration { return c.WebhookDedupeTTL }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from environment variables, loading .env first if present.
func Load() (*Config, error) {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		JWTAccessSecret:         os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:            getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:             splitAndTrim(os.Getenv("CORS_ORIGINS")),
		CORSAllowCreds:          getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		AppBaseURL:              getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailEnabled:            getBoolEnv("EMAIL_ENABLED", true),
		SMTPHost:                os.Getenv("SMTP_HOST"),
		SMTPPort:                getIntEnv("SMTP_PORT", 587),
		SMTPUsername:            os.Getenv("SMTP_USERNAME"),
		SMTPPassword:            os.Getenv("SMTP_PASSWORD"),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "CRM Portal"),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", "noreply@localhost"),
		EmailSendTimeout:        getDurationEnv("EMAIL_SEND_TIMEOUT", 15*time.Second),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:        getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        getIntEnv("ASYNQ_CONCURRENCY", 10),
		AgingSweepCron:          getEnv("AGING_SWEEP_CRON", "0 7 * * *"),
		AutomationAdvanceCron:   getEnv("AUTOMATION_ADVANCE_CRON", "0 * * * *"),
		AgingAlertThresholdDays: getIntEnv("AGING_ALERT_THRESHOLD_DAYS", 2),
		AgingSweepConcurrency:   getIntEnv("AGING_SWEEP_CONCURRENCY", 8),
		SequenceConfigPath:      os.Getenv("SEQUENCE_CONFIG_PATH"),
		AutomationBatchSize:     getIntEnv("AUTOMATION_BATCH_SIZE", 200),
		AlertSendInterval:       getDurationEnv("ALERT_SEND_INTERVAL", 500*time.Millisecond),
		WebhookDedupeTTL:        getDurationEnv("WEBHOOK_DEDUPE_TTL", 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
