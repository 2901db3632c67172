// Package domain contains user and role models shared across the engine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CommissionType tags a role with the calculator that applies to it.
// Roles outside sales and dispatch never earn commission.
type CommissionType string

const (
	CommissionTypeSales    CommissionType = "sales"
	CommissionTypeDispatch CommissionType = "dispatch"
	CommissionTypeNone     CommissionType = "none"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type Role struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	OrgID          snowflake.ID   `gorm:"not null;index"`
	Name           string         `gorm:"type:text;not null"`
	CommissionType CommissionType `gorm:"type:text;not null;default:none"`
	IsTeamLead     bool           `gorm:"not null;default:false"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Role) TableName() string { return "roles" }

type User struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index:idx_users_org_status,priority:1;uniqueIndex:ux_users_org_email,priority:1"`
	RoleID      snowflake.ID `gorm:"not null"`
	Email       string       `gorm:"type:text;not null;uniqueIndex:ux_users_org_email,priority:2"`
	DisplayName string       `gorm:"type:text;not null;default:''"`
	Status      UserStatus   `gorm:"type:text;not null;default:active;index:idx_users_org_status,priority:2"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string { return "users" }
