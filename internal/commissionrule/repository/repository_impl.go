package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ruledomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *ruledomain.CommissionRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*ruledomain.CommissionRule, error) {
	var rule ruledomain.CommissionRule
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repo) ListVersions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ruleType ruledomain.RuleType) ([]ruledomain.CommissionRule, error) {
	var rules []ruledomain.CommissionRule
	stmt := db.WithContext(ctx).Where("org_id = ?", orgID)
	if ruleType != "" {
		stmt = stmt.Where("type = ?", ruleType)
	}
	err := stmt.Order("updated_at DESC, id DESC").Find(&rules).Error
	return rules, err
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ruleType ruledomain.RuleType) (*ruledomain.CommissionRule, error) {
	var rule ruledomain.CommissionRule
	err := db.WithContext(ctx).
		Where("org_id = ? AND type = ? AND archived = ?", orgID, ruleType, false).
		Order("updated_at DESC, id DESC").
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repo) Archive(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	result := db.WithContext(ctx).
		Model(&ruledomain.CommissionRule{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Update("archived", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ruledomain.ErrNotFound
	}
	return nil
}
