// Package collector answers the read-only metric queries the calculators
// consume. It never writes.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Collector struct {
	log *zap.Logger
}

type Param struct {
	fx.In

	Log *zap.Logger
}

func New(p Param) commissiondomain.Collector {
	return &Collector{log: p.Log.Named("commission.collector")}
}

// CollectSales counts the user's currently active leads and their
// inbound/outbound split. The count is deliberately a live pipeline figure:
// tier thresholds are defined against current book size, so no
// month-boundary filter applies here.
func (c *Collector) CollectSales(ctx context.Context, db *gorm.DB, userID snowflake.ID, month commissiondomain.Month) (*commissiondomain.SalesMetrics, error) {
	var row struct {
		Total    int
		Inbound  int
		Outbound int
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(CASE WHEN source = 'inbound' THEN 1 ELSE 0 END), 0) AS inbound,
		        COALESCE(SUM(CASE WHEN source = 'outbound' THEN 1 ELSE 0 END), 0) AS outbound
		 FROM leads
		 WHERE assigned_to = ? AND status = 'active'`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("%w: sales metrics: %v", commissiondomain.ErrMetricsUnavailable, err)
	}
	return &commissiondomain.SalesMetrics{
		ActiveLeads:   row.Total,
		InboundLeads:  row.Inbound,
		OutboundLeads: row.Outbound,
	}, nil
}

// CollectDispatch sums the linked invoice totals of loads the user completed
// within the month, plus the lead-side bonus inputs.
func (c *Collector) CollectDispatch(ctx context.Context, db *gorm.DB, userID snowflake.ID, month commissiondomain.Month) (*commissiondomain.DispatchMetrics, error) {
	start, end := month.Bounds()
	firstTwoWeeksEnd := start.Add(14 * 24 * time.Hour)
	if firstTwoWeeksEnd.After(end) {
		firstTwoWeeksEnd = end
	}

	var loadRow struct {
		CompletedLoads     int
		InvoiceTotal       float64
		FirstTwoWeeksTotal float64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(l.id) AS completed_loads,
		        COALESCE(SUM(fi.total_amount), 0) AS invoice_total,
		        COALESCE(SUM(CASE WHEN l.completed_at < ? THEN fi.total_amount ELSE 0 END), 0) AS first_two_weeks_total
		 FROM loads l
		 JOIN freight_invoices fi ON fi.load_id = l.id
		 WHERE l.assigned_to = ?
		   AND l.status = 'completed'
		   AND l.completed_at >= ? AND l.completed_at < ?`,
		firstTwoWeeksEnd,
		userID,
		start,
		end,
	).Scan(&loadRow).Error
	if err != nil {
		return nil, fmt.Errorf("%w: dispatch load metrics: %v", commissiondomain.ErrMetricsUnavailable, err)
	}

	var leadRow struct {
		ActiveLeads  int
		OwnLeads     int
		NewLeads     int
		ActiveTrucks int
	}
	err = db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS active_leads,
		        COALESCE(SUM(CASE WHEN created_by = assigned_to THEN 1 ELSE 0 END), 0) AS own_leads,
		        COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN 1 ELSE 0 END), 0) AS new_leads,
		        (SELECT COUNT(*)
		         FROM trucks t
		         JOIN leads tl ON tl.id = t.lead_id
		         WHERE tl.assigned_to = ? AND tl.status = 'active' AND t.status = 'active') AS active_trucks
		 FROM leads
		 WHERE assigned_to = ? AND status = 'active'`,
		start,
		end,
		userID,
		userID,
	).Scan(&leadRow).Error
	if err != nil {
		return nil, fmt.Errorf("%w: dispatch lead metrics: %v", commissiondomain.ErrMetricsUnavailable, err)
	}

	return &commissiondomain.DispatchMetrics{
		CompletedLoads:     loadRow.CompletedLoads,
		InvoiceTotal:       loadRow.InvoiceTotal,
		FirstTwoWeeksTotal: loadRow.FirstTwoWeeksTotal,
		OwnLeads:           leadRow.OwnLeads,
		NewLeads:           leadRow.NewLeads,
		ActiveTrucks:       leadRow.ActiveTrucks,
		ActiveLeads:        leadRow.ActiveLeads,
	}, nil
}
