// Package domain contains the versioned commission rule models.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type RuleType string

const (
	RuleTypeSales    RuleType = "sales"
	RuleTypeDispatch RuleType = "dispatch"
)

func (t RuleType) Valid() bool {
	return t == RuleTypeSales || t == RuleTypeDispatch
}

// SalesTier is keyed by an active-lead threshold. Callers must keep tiers in
// ascending Active order; the resolver applies the last tier whose threshold
// is satisfied.
type SalesTier struct {
	Active int     `json:"active"`
	Fixed  float64 `json:"fixed,omitempty"`
	Pct    float64 `json:"pct,omitempty"`
}

// DispatchTier is a closed [Min, Max] invoice-total range. Ranges are
// caller-guaranteed non-overlapping; no match resolves to a zero rate.
type DispatchTier struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Pct float64 `json:"pct"`
}

// CommissionRule is one immutable version of an organization's tier table.
// A new version is inserted on every change; the latest updated_at wins.
type CommissionRule struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	OrgID     snowflake.ID   `gorm:"not null;index:idx_commission_rules_current,priority:1"`
	Type      RuleType       `gorm:"type:text;not null;index:idx_commission_rules_current,priority:2"`
	Tiers     datatypes.JSON `gorm:"type:jsonb;not null"`
	Archived  bool           `gorm:"not null;default:false"`
	UpdatedBy snowflake.ID   `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_commission_rules_current,priority:3"`
}

func (CommissionRule) TableName() string { return "commission_rules" }

func (r *CommissionRule) SalesTiers() ([]SalesTier, error) {
	var tiers []SalesTier
	if err := json.Unmarshal(r.Tiers, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *CommissionRule) DispatchTiers() ([]DispatchTier, error) {
	var tiers []DispatchTier
	if err := json.Unmarshal(r.Tiers, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}
