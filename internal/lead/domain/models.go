package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Source string

const (
	SourceInbound  Source = "inbound"
	SourceOutbound Source = "outbound"
)

func (s Source) Valid() bool {
	return s == SourceInbound || s == SourceOutbound
}

type Status string

const (
	StatusNew    Status = "new"
	StatusActive Status = "active"
	StatusLost   Status = "lost"
)

func (s Status) Valid() bool {
	return s == StatusNew || s == StatusActive || s == StatusLost
}

type Lead struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index:idx_leads_org"`
	AssignedTo  snowflake.ID `gorm:"not null;index:idx_leads_assigned_status,priority:1"`
	CreatedBy   snowflake.ID `gorm:"not null"`
	Source      Source       `gorm:"type:text;not null"`
	Status      Status       `gorm:"type:text;not null;default:'new';index:idx_leads_assigned_status,priority:2"`
	ActivatedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Lead) TableName() string { return "leads" }

type Truck struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null"`
	LeadID    snowflake.ID `gorm:"not null;index:idx_trucks_lead"`
	Status    string       `gorm:"type:text;not null;default:'inactive'"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (Truck) TableName() string { return "trucks" }

var (
	ErrInvalidSource = errors.New("invalid_lead_source")
	ErrInvalidStatus = errors.New("invalid_lead_status")
	ErrNotFound      = errors.New("lead_not_found")
)

type CreateRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	AssignedTo     string `json:"assigned_to" binding:"required"`
	CreatedBy      string `json:"created_by" binding:"required"`
	Source         string `json:"source" binding:"required"`
}

type Response struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"organization_id"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	Source      Source     `json:"source"`
	Status      Status     `json:"status"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, organizationID string) ([]Response, error)
	UpdateStatus(ctx context.Context, id string, status Status, actor string) (*Response, error)
}
