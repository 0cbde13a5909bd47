// The scheduler binary runs the recurring jobs: the daily aging sweep with
// admin alerting, and the drip automation advance pass. It shares the API
// server's module graph but exposes no HTTP surface.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"crm_portal_backend/internal/aging"
	"crm_portal_backend/internal/alerting"
	"crm_portal_backend/internal/automation"
	"crm_portal_backend/internal/email"
	"crm_portal_backend/internal/events"
	"crm_portal_backend/internal/leads"
	"crm_portal_backend/internal/notification"
	"crm_portal_backend/internal/scheduler"
	"crm_portal_backend/platform/config"
	"crm_portal_backend/platform/db"
	"crm_portal_backend/platform/logger"
	"crm_portal_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env).Named("scheduler")
	log.Info("starting scheduler worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	sender := newSender(cfg, log)
	sequences := loadSequences(cfg, log)

	leadsModule := leads.NewModule(pool, eventBus, val, log)
	agingService := aging.New(leadsModule.Repository(), cfg, log)
	automationModule := automation.NewModule(pool, leadsModule.Repository(), sender, sequences, eventBus, cfg, val, log)
	notificationModule := notification.NewModule(pool, log)
	alertingModule := alerting.NewModule(pool, agingService, sender, notificationModule.InApp(), eventBus, cfg, log)

	worker, err := scheduler.NewWorker(cfg, alertingModule.Service(), automationModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("scheduler worker running",
		"agingSweepCron", cfg.GetAgingSweepCron(),
		"automationAdvanceCron", cfg.GetAutomationAdvanceCron(),
		"queue", cfg.GetAsynqQueueName(),
	)
	worker.Run(ctx)
	log.Info("scheduler worker stopped")
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
