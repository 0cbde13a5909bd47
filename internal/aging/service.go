package aging

import (
	"context"
	"sync"
	"time"

	"crm_portal_backend/internal/leads/repository"
	"crm_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LeadSource is the persistence surface the sweep depends on.
// Satisfied by *repository.Repository.
type LeadSource interface {
	ListForAgingSweep(ctx context.Context) ([]repository.Lead, error)
	LatestContactAt(ctx context.Context, leadID uuid.UUID) (*time.Time, error)
	SetAgingDays(ctx context.Context, id uuid.UUID, agingDays int) (bool, error)
	ListAlerting(ctx context.Context, thresholdDays int) ([]repository.Lead, error)
}

// Config provides sweep tuning.
type Config interface {
	GetAgingAlertThresholdDays() int
	GetAgingSweepConcurrency() int
}

// SweepError records a single lead's failure during a sweep. Per-lead
// failures never abort the sweep for other leads.
type SweepError struct {
	LeadID uuid.UUID
	Err    error
}

// SweepResult summarizes one aging sweep.
type SweepResult struct {
	Scanned   int
	Updated   int
	Unchanged int
	Errors    []SweepError
	// Alerting is the post-sweep alerting set: leads past the threshold,
	// non-terminal, not archived, not manually exempted.
	Alerting []repository.Lead
}

// Service runs the scheduled aging sweep.
type Service struct {
	source LeadSource
	cfg    Config
	log    *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates the aging service.
func New(source LeadSource, cfg Config, log *logger.Logger) *Service {
	return &Service{
		source: source,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Sweep recomputes aging_days for every active, non-archived lead and then
// queries the alerting set. Recomputation is idempotent: running the sweep
// twice in succession writes nothing the second time and yields the same
// result. Terminal-stage leads still get their aging recomputed; the
// alerting query is where Won/Lost are excluded.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	start := s.now()

	leads, err := s.source.ListForAgingSweep(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(leads)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	concurrency := s.cfg.GetAgingSweepConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for _, lead := range leads {
		g.Go(func() error {
			updated, err := s.recompute(gctx, lead, start)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, SweepError{LeadID: lead.ID, Err: err})
				s.log.Error("aging recompute failed", "error", err, "leadId", lead.ID)
			case updated:
				result.Updated++
			default:
				result.Unchanged++
			}
			// Errors are collected, never returned: one lead must not
			// cancel the group for the rest.
			return nil
		})
	}
	_ = g.Wait()

	alerting, err := s.source.ListAlerting(ctx, s.cfg.GetAgingAlertThresholdDays())
	if err != nil {
		// Proceed with whatever succeeded; the alert set is simply empty.
		s.log.Error("alerting query failed after sweep", "error", err)
		result.Errors = append(result.Errors, SweepError{Err: err})
	} else {
		result.Alerting = alerting
	}

	s.log.Info("aging sweep complete",
		"scanned", result.Scanned,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"failed", len(result.Errors),
		"alerting", len(result.Alerting),
		"tookMs", s.now().Sub(start).Milliseconds(),
	)

	return result, nil
}

func (s *Service) recompute(ctx context.Context, lead repository.Lead, now time.Time) (bool, error) {
	latest, err := s.source.LatestContactAt(ctx, lead.ID)
	if err != nil {
		return false, err
	}

	days := AgingDays(now, EffectiveLastContact(lead.CreatedAt, latest))
	return s.source.SetAgingDays(ctx, lead.ID, days)
}
