package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Profile is the read model the commission engine needs for a user: who they
// are and which calculator, if any, their role maps to.
type Profile struct {
	UserID         snowflake.ID
	OrgID          snowflake.ID
	Status         UserStatus
	CommissionType CommissionType
	IsTeamLead     bool
}

type Repository interface {
	FindProfile(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Profile, error)
	ListActiveCommissionProfiles(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Profile, error)
}
