// Package store persists monthly commission records.
package store

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	"github.com/haulbase/haulbase/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Store struct {
	log *zap.Logger
}

type Param struct {
	fx.In

	Log *zap.Logger
}

func New(p Param) commissiondomain.Store {
	return &Store{log: p.Log.Named("commission.store")}
}

func (s *Store) FindByUserMonth(ctx context.Context, tx *gorm.DB, userID snowflake.ID, month commissiondomain.Month) (*commissiondomain.CommissionMonthly, error) {
	var record commissiondomain.CommissionMonthly
	err := tx.WithContext(ctx).
		Where("user_id = ? AND month = ?", userID, month).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Upsert writes the computed fields for (user, month). An existing row keeps
// its id, status and approval fields; only the money fields, metrics snapshot
// and bookkeeping columns change. A unique index on (user_id, month) backs
// the create path, so a concurrent first calculation loses cleanly and is
// retried as an update.
func (s *Store) Upsert(ctx context.Context, tx *gorm.DB, record *commissiondomain.CommissionMonthly) (*commissiondomain.CommissionMonthly, error) {
	existing, err := s.FindByUserMonth(ctx, tx, record.UserID, record.Month)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		record.Status = commissiondomain.StatusCalculated
		createErr := tx.WithContext(ctx).Create(record).Error
		if createErr == nil {
			return record, nil
		}
		if !db.IsDuplicateKeyErr(createErr) {
			return nil, createErr
		}
		// Lost the insert race; fall through to the update path.
		existing, err = s.FindByUserMonth(ctx, tx, record.UserID, record.Month)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, createErr
		}
	}

	updates := map[string]any{
		"org_id":                record.OrgID,
		"type":                  record.Type,
		"base_amount":           record.BaseAmount,
		"bonus_amount":          record.BonusAmount,
		"percentage_adjustment": record.PercentageAdjustment,
		"penalty_pct":           record.PenaltyPct,
		"amount":                record.Amount,
		"metrics":               record.Metrics,
		"updated_by":            record.UpdatedBy,
		"updated_at":            record.UpdatedAt,
	}
	if err := tx.WithContext(ctx).
		Model(&commissiondomain.CommissionMonthly{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.FindByUserMonth(ctx, tx, record.UserID, record.Month)
}

func (s *Store) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*commissiondomain.CommissionMonthly, error) {
	var record commissiondomain.CommissionMonthly
	err := tx.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *Store) ListByOrgMonth(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, month commissiondomain.Month) ([]commissiondomain.CommissionMonthly, error) {
	var records []commissiondomain.CommissionMonthly
	stmt := tx.WithContext(ctx).Where("org_id = ?", orgID)
	if month != "" {
		stmt = stmt.Where("month = ?", month)
	}
	err := stmt.Order("month DESC, user_id ASC").Find(&records).Error
	return records, err
}

// Approve marks a record approved. Approval is terminal: approving twice is
// rejected rather than silently refreshed.
func (s *Store) Approve(ctx context.Context, tx *gorm.DB, id, approvedBy snowflake.ID) (*commissiondomain.CommissionMonthly, error) {
	record, err := s.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, commissiondomain.ErrRecordNotFound
	}
	if record.Status == commissiondomain.StatusApproved {
		return nil, commissiondomain.ErrAlreadyApproved
	}

	now := tx.NowFunc()
	result := tx.WithContext(ctx).
		Model(&commissiondomain.CommissionMonthly{}).
		Where("id = ? AND status = ?", id, commissiondomain.StatusCalculated).
		Updates(map[string]any{
			"status":      commissiondomain.StatusApproved,
			"approved_by": approvedBy,
			"approved_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, commissiondomain.ErrAlreadyApproved
	}
	return s.FindByID(ctx, tx, id)
}
