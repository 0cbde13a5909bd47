package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_portal_backend/internal/aging"
	"crm_portal_backend/internal/alerting"
	"crm_portal_backend/internal/automation"
	"crm_portal_backend/internal/email"
	"crm_portal_backend/internal/events"
	apphttp "crm_portal_backend/internal/http"
	"crm_portal_backend/internal/http/router"
	"crm_portal_backend/internal/leads"
	"crm_portal_backend/internal/notification"
	"crm_portal_backend/internal/quotes"
	"crm_portal_backend/internal/webhook"
	"crm_portal_backend/platform/config"
	"crm_portal_backend/platform/db"
	"crm_portal_backend/platform/logger"
	"crm_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env).Named("api")
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender := newSender(cfg, log)
	sequences := loadSequences(cfg, log)
	dedupe := newDeduper(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, val, log)
	agingService := aging.New(leadsModule.Repository(), cfg, log)

	automationModule := automation.NewModule(pool, leadsModule.Repository(), sender, sequences, eventBus, cfg, val, log)
	notificationModule := notification.NewModule(pool, log)
	alertingModule := alerting.NewModule(pool, agingService, sender, notificationModule.InApp(), eventBus, cfg, log)
	webhookModule := webhook.NewModule(pool, leadsModule.Repository(), automationModule.Service(), dedupe, eventBus, val, log)
	quotesModule := quotes.NewModule(pool, leadsModule.Repository(), sender, cfg, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			automationModule,
			webhookModule,
			notificationModule,
			alertingModule,
			quotesModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// newSender picks the real SMTP sender or the no-op depending on config.
func newSender(cfg *config.Config, log *logger.Logger) email.Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		log.Warn("email delivery disabled; using no-op sender")
		return email.NoopSender{}
	}
	return email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
		cfg.GetEmailSendTimeout(),
	)
}

// loadSequences reads the drip sequence overrides. An unset path means the
// built-in defaults; a path that fails to load stops startup, because a
// typo'd policy file must not silently run the wrong drip sequence.
func loadSequences(cfg config.AutomationConfig, log *logger.Logger) automation.SequenceSet {
	path := cfg.GetSequenceConfigPath()
	if path == "" {
		return automation.DefaultSequences()
	}
	sequences, err := automation.LoadSequences(path)
	if err != nil {
		log.Error("failed to load sequence config", "error", err, "path", path)
		panic("failed to load sequence config: " + err.Error())
	}
	log.Info("loaded drip sequence config", "path", path)
	return sequences
}

// newDeduper connects webhook deduplication to redis; without redis the
// guarded writes downstream still keep replays harmless.
func newDeduper(cfg *config.Config, log *logger.Logger) webhook.Deduper {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; webhook deduplication disabled")
		return webhook.NoopDeduper{}
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL; webhook deduplication disabled", "error", err)
		return webhook.NoopDeduper{}
	}
	return webhook.NewRedisDeduper(redis.NewClient(opt), cfg.GetWebhookDedupeTTL())
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
