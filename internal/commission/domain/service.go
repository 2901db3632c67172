package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Outcome describes what a trigger did for a (user, month).
type Outcome string

const (
	OutcomeCalculated      Outcome = "calculated"
	OutcomeNoRule          Outcome = "skipped_no_rule"
	OutcomeRoleNotEligible Outcome = "skipped_role"
	OutcomeApprovedGuard   Outcome = "skipped_approved"
)

// Result pairs the recalculated record (nil for skips) with the outcome.
type Result struct {
	Outcome Outcome
	Record  *CommissionMonthly
}

// TriggerOptions tune a single recalculation request.
type TriggerOptions struct {
	// Force overwrites an approved record. Only the manual admin path sets it.
	Force bool
	// Actor is recorded in the audit trail; empty means system.
	Actor string
}

// Coordinator is the only entry point that may combine a calculator with the
// record store. Event triggers, the admin surface, and the batch sweep all go
// through Trigger.
type Coordinator interface {
	Trigger(ctx context.Context, userID snowflake.ID, month Month, opts TriggerOptions) (*Result, error)
}

// SalesMetrics are the raw inputs of the sales calculator. Active-lead counts
// are live pipeline counts, deliberately not bounded to the target month.
type SalesMetrics struct {
	ActiveLeads   int
	InboundLeads  int
	OutboundLeads int
}

// DispatchMetrics are the raw inputs of the dispatch calculator. Load and
// invoice figures are bounded to the target month by completion date.
type DispatchMetrics struct {
	CompletedLoads     int
	InvoiceTotal       float64
	FirstTwoWeeksTotal float64
	OwnLeads           int
	NewLeads           int
	ActiveTrucks       int
	ActiveLeads        int
}

// Collector answers read-only metric queries against leads, loads and
// invoices. Failures map to ErrMetricsUnavailable.
type Collector interface {
	CollectSales(ctx context.Context, db *gorm.DB, userID snowflake.ID, month Month) (*SalesMetrics, error)
	CollectDispatch(ctx context.Context, db *gorm.DB, userID snowflake.ID, month Month) (*DispatchMetrics, error)
}

// Store persists monthly commission records with upsert semantics keyed on
// (user, month). It preserves identity and approval fields on update.
type Store interface {
	FindByUserMonth(ctx context.Context, db *gorm.DB, userID snowflake.ID, month Month) (*CommissionMonthly, error)
	Upsert(ctx context.Context, db *gorm.DB, record *CommissionMonthly) (*CommissionMonthly, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CommissionMonthly, error)
	ListByOrgMonth(ctx context.Context, db *gorm.DB, orgID snowflake.ID, month Month) ([]CommissionMonthly, error)
	Approve(ctx context.Context, db *gorm.DB, id, approvedBy snowflake.ID) (*CommissionMonthly, error)
}
