package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, organizationID string, ruleType string) ([]Response, error)
	Get(ctx context.Context, organizationID string, id string) (*Response, error)
	Archive(ctx context.Context, organizationID string, id string, actorID string) error
}

type CreateRequest struct {
	OrganizationID string         `json:"organization_id"`
	Type           string         `json:"type"`
	SalesTiers     []SalesTier    `json:"sales_tiers,omitempty"`
	DispatchTiers  []DispatchTier `json:"dispatch_tiers,omitempty"`
	UpdatedBy      string         `json:"updated_by"`
}

type Response struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Type           RuleType       `json:"type"`
	SalesTiers     []SalesTier    `json:"sales_tiers,omitempty"`
	DispatchTiers  []DispatchTier `json:"dispatch_tiers,omitempty"`
	Archived       bool           `json:"archived"`
	UpdatedBy      string         `json:"updated_by"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidType         = errors.New("invalid_rule_type")
	ErrInvalidTiers        = errors.New("invalid_tiers")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("rule_not_found")
)
