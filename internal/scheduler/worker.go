package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"crm_portal_backend/internal/alerting"
	"crm_portal_backend/internal/automation"
	"crm_portal_backend/platform/config"
	"crm_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// AlertDispatcher runs the aging sweep and alerts on the result.
// Satisfied by *alerting.Service.
type AlertDispatcher interface {
	SweepAndDispatch(ctx context.Context) (alerting.Summary, error)
}

// DripAdvancer runs one drip advance pass. Satisfied by *automation.Service.
type DripAdvancer interface {
	AdvanceAll(ctx context.Context) (automation.AdvanceSummary, error)
}

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	alerts    AlertDispatcher
	drip      DripAdvancer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, alerts AlertDispatcher, drip DripAdvancer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	sched := asynq.NewScheduler(opt, nil)
	if _, err := sched.Register(cfg.GetAgingSweepCron(), NewAgingSweepTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register aging sweep: %w", err)
	}
	if _, err := sched.Register(cfg.GetAutomationAdvanceCron(), NewAutomationAdvanceTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register automation advance: %w", err)
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		scheduler: sched,
		mux:       mux,
		alerts:    alerts,
		drip:      drip,
		log:       log,
	}

	mux.HandleFunc(TaskAgingSweep, w.handleAgingSweep)
	mux.HandleFunc(TaskAutomationAdvance, w.handleAutomationAdvance)

	return w, nil
}

func (w *Worker) handleAgingSweep(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.alerts.SweepAndDispatch(ctx)
	if err != nil {
		return err
	}
	w.log.Info("scheduled aging sweep finished",
		"alertingLeads", summary.AlertingLeads,
		"admins", summary.TotalAdmins,
		"sent", summary.SuccessfulSends,
		"failed", summary.FailedSends,
	)
	return nil
}

func (w *Worker) handleAutomationAdvance(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.drip.AdvanceAll(ctx)
	if err != nil {
		return err
	}
	w.log.Info("scheduled drip advance finished",
		"scanned", summary.Scanned,
		"sent", summary.Sent,
		"completed", summary.Completed,
		"failed", summary.Failed,
	)
	return nil
}

// redisClientOpt translates a redis:// or rediss:// URL into asynq's client
// options, honoring the insecure-TLS escape hatch for managed redis
// providers with self-signed chains.
func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

// Run starts the cron scheduler and the task server, blocking until ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("cron scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
