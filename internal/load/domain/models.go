package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Load struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	OrgID       snowflake.ID  `gorm:"not null;index:idx_loads_org"`
	AssignedTo  snowflake.ID  `gorm:"not null;index:idx_loads_assigned_status,priority:1"`
	LeadID      *snowflake.ID `gorm:"index:idx_loads_lead"`
	Status      Status        `gorm:"type:text;not null;default:'pending';index:idx_loads_assigned_status,priority:2"`
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Load) TableName() string { return "loads" }

type FreightInvoice struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null"`
	LoadID      snowflake.ID `gorm:"not null;uniqueIndex:ux_freight_invoices_load"`
	TotalAmount float64      `gorm:"not null"`
	IssuedAt    time.Time    `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null"`
}

func (FreightInvoice) TableName() string { return "freight_invoices" }

var (
	ErrInvalidStatus  = errors.New("invalid_load_status")
	ErrInvalidAmount  = errors.New("invalid_invoice_amount")
	ErrNotFound       = errors.New("load_not_found")
	ErrInvoiceExists  = errors.New("invoice_exists")
	ErrInvoiceMissing = errors.New("invoice_missing")
)

type CreateRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	AssignedTo     string `json:"assigned_to" binding:"required"`
	LeadID         string `json:"lead_id"`
}

type InvoiceRequest struct {
	TotalAmount float64 `json:"total_amount" binding:"required"`
	IssuedAt    string  `json:"issued_at"`
}

type Response struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"organization_id"`
	AssignedTo  string     `json:"assigned_to"`
	LeadID      string     `json:"lead_id,omitempty"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, organizationID string) ([]Response, error)
	RecordInvoice(ctx context.Context, loadID string, req InvoiceRequest) error
	UpdateStatus(ctx context.Context, id string, status Status, actor string) (*Response, error)
}
