// Package domain contains the activity log model.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActivityLog records who did what to which record. The engine writes one row
// per recalculation outcome so every payout change has a trail.
type ActivityLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	OrgID      snowflake.ID      `gorm:"not null;index:idx_activity_logs_org_created,priority:1"`
	Actor      string            `gorm:"type:text;not null"`
	Action     string            `gorm:"type:text;not null"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   string            `gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_activity_logs_org_created,priority:2,sort:desc"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

const (
	ActorSystem = "system"

	ActionCommissionCalculated = "commission.calculated"
	ActionCommissionSkipped    = "commission.skipped"
	ActionCommissionApproved   = "commission.approved"
	ActionBatchSweepCompleted  = "commission.batch_completed"
	ActionRuleArchived         = "commission_rule.archived"
)

type Service interface {
	Record(ctx context.Context, orgID snowflake.ID, actor, action, targetType, targetID string, metadata map[string]any) error
}

var ErrInvalidAction = errors.New("invalid_action")
