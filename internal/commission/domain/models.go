// Package domain contains the monthly commission record and the contracts
// between the coordinator, the calculators, and their data sources.
package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusCalculated Status = "calculated"
	StatusApproved   Status = "approved"
)

// Month is a calendar month in YYYY-MM form.
type Month string

const monthLayout = "2006-01"

func ParseMonth(value string) (Month, error) {
	if _, err := time.Parse(monthLayout, value); err != nil {
		return "", ErrInvalidMonth
	}
	return Month(value), nil
}

func MonthOf(t time.Time) Month {
	return Month(t.UTC().Format(monthLayout))
}

// Bounds returns the half-open [start, end) window of the month in UTC.
func (m Month) Bounds() (time.Time, time.Time) {
	start, _ := time.Parse(monthLayout, string(m))
	return start, start.AddDate(0, 1, 0)
}

func (m Month) String() string { return string(m) }

// CommissionMonthly is the persisted outcome of applying the current rule to
// one user's metrics for one month. At most one row exists per (user, month);
// recalculation updates it in place. Only the coordinator writes it.
type CommissionMonthly struct {
	ID                   snowflake.ID        `gorm:"primaryKey"`
	UserID               snowflake.ID        `gorm:"not null;uniqueIndex:ux_commission_monthlies_user_month,priority:1"`
	OrgID                snowflake.ID        `gorm:"not null;index:idx_commission_monthlies_org_month,priority:1"`
	Month                Month               `gorm:"type:text;not null;uniqueIndex:ux_commission_monthlies_user_month,priority:2;index:idx_commission_monthlies_org_month,priority:2"`
	Type                 ruledomain.RuleType `gorm:"type:text;not null"`
	BaseAmount           float64             `gorm:"not null"`
	BonusAmount          float64             `gorm:"not null"`
	PercentageAdjustment float64             `gorm:"not null"`
	PenaltyPct           float64             `gorm:"not null"`
	Amount               float64             `gorm:"not null"`
	Metrics              datatypes.JSON      `gorm:"type:jsonb;not null"`
	Status               Status              `gorm:"type:text;not null;default:calculated"`
	ApprovedBy           *snowflake.ID       `gorm:""`
	ApprovedAt           *time.Time          `gorm:""`
	UpdatedBy            *snowflake.ID       `gorm:""`
	CreatedAt            time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CommissionMonthly) TableName() string { return "commission_monthlies" }

func (c *CommissionMonthly) Snapshot() (*MetricsSnapshot, error) {
	var snapshot MetricsSnapshot
	if err := json.Unmarshal(c.Metrics, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// MetricsSnapshot records every input and intermediate quantity that produced
// a record's amount, so any payout can be audited after the fact.
type MetricsSnapshot struct {
	RuleID string `json:"rule_id"`

	// Sales inputs
	ActiveLeads   int  `json:"active_leads,omitempty"`
	InboundLeads  int  `json:"inbound_leads,omitempty"`
	OutboundLeads int  `json:"outbound_leads,omitempty"`
	TeamLead      bool `json:"team_lead,omitempty"`

	// Dispatch inputs
	CompletedLoads     int     `json:"completed_loads,omitempty"`
	InvoiceTotal       float64 `json:"invoice_total,omitempty"`
	FirstTwoWeeksTotal float64 `json:"first_two_weeks_total,omitempty"`
	OwnLeads           int     `json:"own_leads,omitempty"`
	NewLeads           int     `json:"new_leads,omitempty"`
	ActiveTrucks       int     `json:"active_trucks,omitempty"`

	// Applied tier
	TierThreshold int     `json:"tier_threshold,omitempty"`
	TierMin       float64 `json:"tier_min,omitempty"`
	TierMax       float64 `json:"tier_max,omitempty"`
	TierFixed     float64 `json:"tier_fixed,omitempty"`
	TierPct       float64 `json:"tier_pct,omitempty"`

	// Composition
	AdjustedBase         float64 `json:"adjusted_base,omitempty"`
	PercentageAdjustment float64 `json:"percentage_adjustment,omitempty"`
	TeamLeadBonus        float64 `json:"team_lead_bonus,omitempty"`
	OwnLeadBonus         float64 `json:"own_lead_bonus,omitempty"`
	NewLeadBonus         float64 `json:"new_lead_bonus,omitempty"`
	FirstTwoWeeksBonus   float64 `json:"first_two_weeks_bonus,omitempty"`
	ActiveTruckBonus     float64 `json:"active_truck_bonus,omitempty"`
	HighVolumeBonus      float64 `json:"high_volume_bonus,omitempty"`
	PenaltyAmount        float64 `json:"penalty_amount,omitempty"`
}

var (
	ErrInvalidMonth       = errors.New("invalid_month")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrMetricsUnavailable = errors.New("metrics_unavailable")
	ErrRecordNotFound     = errors.New("commission_record_not_found")
	ErrAlreadyApproved    = errors.New("commission_record_already_approved")
)
