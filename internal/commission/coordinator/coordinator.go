// Package coordinator owns the recalculation state machine. It is the only
// component allowed to combine a calculator with the record store, and it
// serializes concurrent triggers for the same (user, month).
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/haulbase/haulbase/internal/audit/domain"
	"github.com/haulbase/haulbase/internal/commission/calc"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"github.com/haulbase/haulbase/internal/config"
	identitydomain "github.com/haulbase/haulbase/internal/identity/domain"
	"github.com/haulbase/haulbase/internal/notification"
	obsmetrics "github.com/haulbase/haulbase/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	CfgHolder *config.CommissionConfigHolder
	Identity  identitydomain.Repository
	Rules     ruledomain.Repository
	Collector commissiondomain.Collector
	Store     commissiondomain.Store
	Sink      notification.Sink `optional:"true"`
	Audit     domain.Service    `optional:"true"`
}

type Coordinator struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfgHolder *config.CommissionConfigHolder
	identity  identitydomain.Repository
	rules     ruledomain.Repository
	collector commissiondomain.Collector
	store     commissiondomain.Store
	sink      notification.Sink
	audit     domain.Service

	locks *keyedMutex
}

func New(p Params) commissiondomain.Coordinator {
	return &Coordinator{
		db:        p.DB,
		log:       p.Log.Named("commission.coordinator"),
		genID:     p.GenID,
		cfgHolder: p.CfgHolder,
		identity:  p.Identity,
		rules:     p.Rules,
		collector: p.Collector,
		store:     p.Store,
		sink:      p.Sink,
		audit:     p.Audit,
		locks:     newKeyedMutex(),
	}
}

// Trigger recalculates one user's record for one month.
//
// The read-metrics, compute, upsert sequence runs under a per-(user, month)
// lock, so a losing concurrent trigger re-reads metrics after the winner
// commits instead of writing a record mixed from two snapshots. Rule and
// metric read failures surface to the caller before anything is written.
func (c *Coordinator) Trigger(ctx context.Context, userID snowflake.ID, month commissiondomain.Month, opts commissiondomain.TriggerOptions) (*commissiondomain.Result, error) {
	if userID == 0 {
		return nil, commissiondomain.ErrInvalidUser
	}
	if _, err := commissiondomain.ParseMonth(month.String()); err != nil {
		return nil, err
	}

	profile, err := c.identity.FindProfile(ctx, c.db, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	if profile == nil {
		return nil, commissiondomain.ErrUserNotFound
	}

	var ruleType ruledomain.RuleType
	switch profile.CommissionType {
	case identitydomain.CommissionTypeSales:
		ruleType = ruledomain.RuleTypeSales
	case identitydomain.CommissionTypeDispatch:
		ruleType = ruledomain.RuleTypeDispatch
	default:
		obsmetrics.Engine().IncRecalc(string(profile.CommissionType), obsmetrics.RecalcOutcomeRole)
		return &commissiondomain.Result{Outcome: commissiondomain.OutcomeRoleNotEligible}, nil
	}

	engineMetrics := obsmetrics.Engine()
	start := time.Now()

	lockKey := userID.String() + "|" + month.String()
	lockStart := time.Now()
	unlock, contended := c.locks.Lock(lockKey)
	defer unlock()
	engineMetrics.ObserveLockWait(time.Since(lockStart))
	if contended {
		engineMetrics.IncConflict()
	}

	result, err := c.recalculate(ctx, profile, ruleType, month, opts)
	if err != nil {
		engineMetrics.IncRecalc(string(ruleType), obsmetrics.RecalcOutcomeError)
		return nil, err
	}
	engineMetrics.IncRecalc(string(ruleType), string(result.Outcome))
	engineMetrics.ObserveRecalcDuration(string(ruleType), time.Since(start))
	return result, nil
}

func (c *Coordinator) recalculate(
	ctx context.Context,
	profile *identitydomain.Profile,
	ruleType ruledomain.RuleType,
	month commissiondomain.Month,
	opts commissiondomain.TriggerOptions,
) (*commissiondomain.Result, error) {
	rule, err := c.rules.FindCurrent(ctx, c.db, profile.OrgID, ruleType)
	if err != nil {
		return nil, fmt.Errorf("resolve %s rule for org %s: %w", ruleType, profile.OrgID, err)
	}
	if rule == nil {
		// No configured rule means nothing to pay, not a failure.
		c.recordSkip(ctx, profile, month, ruleType, opts, "no_rule")
		return &commissiondomain.Result{Outcome: commissiondomain.OutcomeNoRule}, nil
	}

	existing, err := c.store.FindByUserMonth(ctx, c.db, profile.UserID, month)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == commissiondomain.StatusApproved && !opts.Force {
		// Approved payouts are frozen; a later event must not silently
		// re-derive them from drifted metrics.
		c.recordSkip(ctx, profile, month, ruleType, opts, "approved")
		return &commissiondomain.Result{
			Outcome: commissiondomain.OutcomeApprovedGuard,
			Record:  existing,
		}, nil
	}

	computed, err := c.compute(ctx, profile, rule, ruleType, month)
	if err != nil {
		return nil, err
	}

	var persisted *commissiondomain.CommissionMonthly
	txErr := c.db.Transaction(func(tx *gorm.DB) error {
		var upsertErr error
		persisted, upsertErr = c.store.Upsert(ctx, tx, computed)
		return upsertErr
	})
	if txErr != nil {
		return nil, fmt.Errorf("persist commission for user %s month %s: %w", profile.UserID, month, txErr)
	}

	c.notify(ctx, persisted)
	c.recordCalculated(ctx, profile, persisted, opts)

	return &commissiondomain.Result{
		Outcome: commissiondomain.OutcomeCalculated,
		Record:  persisted,
	}, nil
}

func (c *Coordinator) compute(
	ctx context.Context,
	profile *identitydomain.Profile,
	rule *ruledomain.CommissionRule,
	ruleType ruledomain.RuleType,
	month commissiondomain.Month,
) (*commissiondomain.CommissionMonthly, error) {
	cfg := c.cfgHolder.Get()

	var result calc.Result
	switch ruleType {
	case ruledomain.RuleTypeSales:
		tiers, err := rule.SalesTiers()
		if err != nil {
			return nil, fmt.Errorf("decode sales tiers of rule %s: %w", rule.ID, err)
		}
		metrics, err := c.collector.CollectSales(ctx, c.db, profile.UserID, month)
		if err != nil {
			return nil, err
		}
		result = calc.ComputeSales(cfg, tiers, calc.SalesInputs{
			Metrics:  *metrics,
			TeamLead: profile.IsTeamLead,
		})
	case ruledomain.RuleTypeDispatch:
		tiers, err := rule.DispatchTiers()
		if err != nil {
			return nil, fmt.Errorf("decode dispatch tiers of rule %s: %w", rule.ID, err)
		}
		metrics, err := c.collector.CollectDispatch(ctx, c.db, profile.UserID, month)
		if err != nil {
			return nil, err
		}
		result = calc.ComputeDispatch(cfg, tiers, calc.DispatchInputs{Metrics: *metrics})
	}

	result.Snapshot.RuleID = rule.ID.String()
	snapshot, err := json.Marshal(result.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode metrics snapshot: %w", err)
	}

	now := c.db.NowFunc()
	updatedBy := profile.UserID
	return &commissiondomain.CommissionMonthly{
		ID:                   c.genID.Generate(),
		UserID:               profile.UserID,
		OrgID:                profile.OrgID,
		Month:                month,
		Type:                 ruleType,
		BaseAmount:           result.BaseAmount,
		BonusAmount:          result.BonusAmount,
		PercentageAdjustment: result.PercentageAdjustment,
		PenaltyPct:           result.PenaltyPct,
		Amount:               result.Amount,
		Metrics:              snapshot,
		Status:               commissiondomain.StatusCalculated,
		UpdatedBy:            &updatedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func (c *Coordinator) notify(ctx context.Context, record *commissiondomain.CommissionMonthly) {
	if c.sink == nil || record == nil {
		return
	}
	c.sink.Publish(ctx, notification.Fact{
		UserID: record.UserID.String(),
		OrgID:  record.OrgID.String(),
		Month:  record.Month.String(),
		Type:   string(record.Type),
		Amount: record.Amount,
	})
}

func (c *Coordinator) recordCalculated(ctx context.Context, profile *identitydomain.Profile, record *commissiondomain.CommissionMonthly, opts commissiondomain.TriggerOptions) {
	if c.audit == nil || record == nil {
		return
	}
	_ = c.audit.Record(ctx, profile.OrgID, opts.Actor, domain.ActionCommissionCalculated,
		"commission_monthly", record.ID.String(), map[string]any{
			"user_id": record.UserID.String(),
			"month":   record.Month.String(),
			"type":    string(record.Type),
			"amount":  record.Amount,
			"forced":  opts.Force,
		})
}

func (c *Coordinator) recordSkip(ctx context.Context, profile *identitydomain.Profile, month commissiondomain.Month, ruleType ruledomain.RuleType, opts commissiondomain.TriggerOptions, reason string) {
	if c.audit == nil {
		return
	}
	_ = c.audit.Record(ctx, profile.OrgID, opts.Actor, domain.ActionCommissionSkipped,
		"commission_monthly", profile.UserID.String(), map[string]any{
			"month":  month.String(),
			"type":   string(ruleType),
			"reason": reason,
		})
}
