package calc

import (
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"github.com/haulbase/haulbase/internal/config"
)

// SalesInputs are the collected metrics plus role facts for one user-month.
type SalesInputs struct {
	Metrics  commissiondomain.SalesMetrics
	TeamLead bool
}

// Result carries the computed record fields and the audit snapshot.
type Result struct {
	BaseAmount           float64
	BonusAmount          float64
	PercentageAdjustment float64
	PenaltyPct           float64
	Amount               float64
	Snapshot             commissiondomain.MetricsSnapshot
}

// ComputeSales applies a sales tier table to live lead counts.
//
// The tier's fixed amount is blended across inbound leads (discounted by the
// inbound factor) and outbound leads, weighted by their counts. The tier
// percentage is then an additive adjustment on the blended base, and team
// leads above target earn a flat per-lead bonus on top.
func ComputeSales(cfg config.CommissionConfig, tiers []ruledomain.SalesTier, in SalesInputs) Result {
	m := in.Metrics

	tier, found := ResolveSalesTier(tiers, m.ActiveLeads)

	var adjustedBase float64
	if found && m.ActiveLeads > 0 {
		inboundWeight := float64(m.InboundLeads) * tier.Fixed * cfg.InboundFactor
		outboundWeight := float64(m.OutboundLeads) * tier.Fixed
		adjustedBase = (inboundWeight + outboundWeight) / float64(m.ActiveLeads)
	}

	percentageAdjustment := adjustedBase * tier.Pct / 100

	var teamLeadBonus float64
	if in.TeamLead && m.ActiveLeads > cfg.TeamLeadTarget {
		teamLeadBonus = cfg.TeamLeadBonusPerLead * float64(m.ActiveLeads)
	}

	amount := roundMoney(adjustedBase + percentageAdjustment + teamLeadBonus)

	return Result{
		BaseAmount:           roundMoney(adjustedBase),
		BonusAmount:          roundMoney(teamLeadBonus),
		PercentageAdjustment: roundMoney(percentageAdjustment),
		Amount:               amount,
		Snapshot: commissiondomain.MetricsSnapshot{
			ActiveLeads:          m.ActiveLeads,
			InboundLeads:         m.InboundLeads,
			OutboundLeads:        m.OutboundLeads,
			TeamLead:             in.TeamLead,
			TierThreshold:        tier.Active,
			TierFixed:            tier.Fixed,
			TierPct:              tier.Pct,
			AdjustedBase:         roundMoney(adjustedBase),
			PercentageAdjustment: roundMoney(percentageAdjustment),
			TeamLeadBonus:        roundMoney(teamLeadBonus),
		},
	}
}
