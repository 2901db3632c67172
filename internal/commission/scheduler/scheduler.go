// Package scheduler runs the monthly commission sweep: every active user
// with a commission-bearing role gets a recalculation, one failure never
// stops the rest of the batch.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	auditdomain "github.com/haulbase/haulbase/internal/audit/domain"
	"github.com/haulbase/haulbase/internal/clock"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	identitydomain "github.com/haulbase/haulbase/internal/identity/domain"
	obsmetrics "github.com/haulbase/haulbase/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Identity    identitydomain.Repository
	Coordinator commissiondomain.Coordinator
	AuditSvc    auditdomain.Service `optional:"true"`
	Config      Config              `optional:"true"`
}

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	identity    identitydomain.Repository
	coordinator commissiondomain.Coordinator
	auditSvc    auditdomain.Service
}

// UserError records one user whose recalculation failed during a sweep.
type UserError struct {
	UserID string
	Err    error
}

// Summary is the aggregate outcome of one sweep.
type Summary struct {
	Month      commissiondomain.Month
	Total      int
	Calculated int
	Skipped    int
	Failed     int
	Errors     []UserError
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Identity == nil || p.Coordinator == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("commission.scheduler"),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		identity:    p.Identity,
		coordinator: p.Coordinator,
		auditSvc:    p.AuditSvc,
	}, nil
}

// CalculateAll recalculates the month for every active commission-bearing
// user. Failures are isolated per user and reported in the summary; only a
// cancelled context or an unreadable user list aborts the sweep.
func (s *Scheduler) CalculateAll(ctx context.Context, month commissiondomain.Month) (*Summary, error) {
	if _, err := commissiondomain.ParseMonth(month.String()); err != nil {
		return nil, err
	}

	profiles, err := s.identity.ListActiveCommissionProfiles(ctx, s.db, 0)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Month: month, Total: len(profiles)}
	engineMetrics := obsmetrics.Engine()

	jobs := make(chan identitydomain.Profile)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := s.cfg.Workers
	if workers > len(profiles) && len(profiles) > 0 {
		workers = len(profiles)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for profile := range jobs {
				outcome, userErr := s.calculateOne(ctx, profile, month)
				mu.Lock()
				switch {
				case userErr != nil:
					summary.Failed++
					summary.Errors = append(summary.Errors, UserError{
						UserID: profile.UserID.String(),
						Err:    userErr,
					})
					engineMetrics.IncBatchUser(obsmetrics.BatchOutcomeFailed)
				case outcome == commissiondomain.OutcomeCalculated:
					summary.Calculated++
					engineMetrics.IncBatchUser(obsmetrics.BatchOutcomeCalculated)
				default:
					summary.Skipped++
					engineMetrics.IncBatchUser(obsmetrics.BatchOutcomeSkipped)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, profile := range profiles {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- profile:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	s.log.Info("commission sweep finished",
		zap.String("month", month.String()),
		zap.Int("total", summary.Total),
		zap.Int("calculated", summary.Calculated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	s.recordSweep(ctx, summary)
	return summary, nil
}

func (s *Scheduler) calculateOne(ctx context.Context, profile identitydomain.Profile, month commissiondomain.Month) (commissiondomain.Outcome, error) {
	userCtx, cancel := context.WithTimeout(ctx, s.cfg.UserTimeout)
	defer cancel()

	result, err := s.coordinator.Trigger(userCtx, profile.UserID, month, commissiondomain.TriggerOptions{
		Actor: auditdomain.ActorSystem,
	})
	if err != nil {
		s.log.Warn("sweep recalculation failed",
			zap.String("user_id", profile.UserID.String()),
			zap.String("month", month.String()),
			zap.Error(err),
		)
		return "", err
	}
	return result.Outcome, nil
}

func (s *Scheduler) recordSweep(ctx context.Context, summary *Summary) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, 0, auditdomain.ActorSystem, auditdomain.ActionBatchSweepCompleted,
		"commission_sweep", summary.Month.String(), map[string]any{
			"total":      summary.Total,
			"calculated": summary.Calculated,
			"skipped":    summary.Skipped,
			"failed":     summary.Failed,
		})
}

// RunForever sweeps the current month on a fixed interval until ctx ends.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		month := commissiondomain.MonthOf(s.clock.Now())
		if _, err := s.CalculateAll(ctx, month); err != nil {
			s.log.Warn("commission sweep failed", zap.Error(err))
		}
	}
}
