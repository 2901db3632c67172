package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *CommissionRule) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*CommissionRule, error)
	ListVersions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ruleType RuleType) ([]CommissionRule, error)
	// FindCurrent returns the latest non-archived version for (org, type),
	// or nil when the organization has no rule configured.
	FindCurrent(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ruleType RuleType) (*CommissionRule, error)
	Archive(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
}
