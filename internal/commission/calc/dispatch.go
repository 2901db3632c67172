package calc

import (
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"github.com/haulbase/haulbase/internal/config"
)

// DispatchInputs are the collected metrics for one dispatcher-month.
type DispatchInputs struct {
	Metrics commissiondomain.DispatchMetrics
}

// ComputeDispatch applies a dispatch tier table to the month's completed-load
// invoice total.
//
// Base is the invoice total times the resolved tier rate. Independent bonuses
// stack on top; a flat salary penalty applies when the invoice total is below
// the configured floor. The penalty amount is negative by construction.
func ComputeDispatch(cfg config.CommissionConfig, tiers []ruledomain.DispatchTier, in DispatchInputs) Result {
	m := in.Metrics

	tier := ResolveDispatchTier(tiers, m.InvoiceTotal)
	base := m.InvoiceTotal * tier.Pct / 100

	var penaltyPct float64
	if m.InvoiceTotal < cfg.PenaltyFloor {
		penaltyPct = cfg.PenaltyPct
	}
	penaltyAmount := base * penaltyPct / 100

	ownLeadBonus := float64(m.OwnLeads) * cfg.OwnLeadBonus
	newLeadBonus := float64(m.NewLeads) * cfg.NewLeadBonus
	firstTwoWeeksBonus := m.FirstTwoWeeksTotal * cfg.FirstTwoWeeksPct / 100

	var activeTruckBonus float64
	if m.ActiveLeads >= cfg.ActiveTruckMinLeads {
		activeTruckBonus = float64(m.ActiveTrucks) * cfg.ActiveTruckBonus
	}

	var highVolumeBonus float64
	if m.ActiveLeads > cfg.HighVolumeMinLeads {
		highVolumeBonus = cfg.HighVolumeBonus
	}

	bonusTotal := ownLeadBonus + newLeadBonus + firstTwoWeeksBonus + activeTruckBonus + highVolumeBonus
	amount := roundMoney(base + bonusTotal + penaltyAmount)

	return Result{
		BaseAmount:  roundMoney(base),
		BonusAmount: roundMoney(bonusTotal),
		PenaltyPct:  penaltyPct,
		Amount:      amount,
		Snapshot: commissiondomain.MetricsSnapshot{
			ActiveLeads:        m.ActiveLeads,
			CompletedLoads:     m.CompletedLoads,
			InvoiceTotal:       roundMoney(m.InvoiceTotal),
			FirstTwoWeeksTotal: roundMoney(m.FirstTwoWeeksTotal),
			OwnLeads:           m.OwnLeads,
			NewLeads:           m.NewLeads,
			ActiveTrucks:       m.ActiveTrucks,
			TierMin:            tier.Min,
			TierMax:            tier.Max,
			TierPct:            tier.Pct,
			AdjustedBase:       roundMoney(base),
			OwnLeadBonus:       roundMoney(ownLeadBonus),
			NewLeadBonus:       roundMoney(newLeadBonus),
			FirstTwoWeeksBonus: roundMoney(firstTwoWeeksBonus),
			ActiveTruckBonus:   roundMoney(activeTruckBonus),
			HighVolumeBonus:    roundMoney(highVolumeBonus),
			PenaltyAmount:      roundMoney(penaltyAmount),
		},
	}
}
