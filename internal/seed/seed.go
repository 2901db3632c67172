// Package seed provisions a demo organization for local development: one
// role per commission type, a handful of users and a default rule set, so a
// fresh database can calculate something immediately.
package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"github.com/haulbase/haulbase/internal/config"
	identitydomain "github.com/haulbase/haulbase/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const demoOrgEmailDomain = "@demo.haulbase.local"

var Module = fx.Module("seed",
	fx.Invoke(RunDevSeed),
)

func RunDevSeed(cfg config.Config, db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if cfg.Environment != "development" {
		return nil
	}
	if err := EnsureDemoOrg(context.Background(), db, node); err != nil {
		return fmt.Errorf("seed demo org: %w", err)
	}
	log.Named("seed").Info("demo organization ready")
	return nil
}

// EnsureDemoOrg is idempotent: it only writes when no demo users exist yet.
func EnsureDemoOrg(ctx context.Context, db *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := db.WithContext(ctx).Model(&identitydomain.User{}).
		Where("email LIKE ?", "%"+demoOrgEmailDomain).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	orgID := node.Generate()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roles := map[string]identitydomain.Role{
			"sales": {
				ID:             node.Generate(),
				OrgID:          orgID,
				Name:           "Sales Agent",
				CommissionType: identitydomain.CommissionTypeSales,
			},
			"sales-lead": {
				ID:             node.Generate(),
				OrgID:          orgID,
				Name:           "Sales Team Lead",
				CommissionType: identitydomain.CommissionTypeSales,
				IsTeamLead:     true,
			},
			"dispatch": {
				ID:             node.Generate(),
				OrgID:          orgID,
				Name:           "Dispatcher",
				CommissionType: identitydomain.CommissionTypeDispatch,
			},
			"ops": {
				ID:             node.Generate(),
				OrgID:          orgID,
				Name:           "Operations",
				CommissionType: identitydomain.CommissionTypeNone,
			},
		}
		for _, role := range roles {
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
		}

		for slug, role := range roles {
			user := identitydomain.User{
				ID:          node.Generate(),
				OrgID:       orgID,
				RoleID:      role.ID,
				Email:       slug + demoOrgEmailDomain,
				DisplayName: role.Name,
				Status:      identitydomain.UserStatusActive,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		}

		salesTiers, err := json.Marshal([]ruledomain.SalesTier{
			{Active: 0, Fixed: 0},
			{Active: 5, Fixed: 500},
			{Active: 10, Fixed: 1000, Pct: 5},
		})
		if err != nil {
			return err
		}
		dispatchTiers, err := json.Marshal([]ruledomain.DispatchTier{
			{Min: 0, Max: 4999.99, Pct: 4},
			{Min: 5000, Max: 14999.99, Pct: 6},
			{Min: 15000, Max: 1000000, Pct: 8},
		})
		if err != nil {
			return err
		}

		now := tx.NowFunc()
		rules := []ruledomain.CommissionRule{
			{
				ID:        node.Generate(),
				OrgID:     orgID,
				Type:      ruledomain.RuleTypeSales,
				Tiers:     salesTiers,
				UpdatedBy: orgID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			{
				ID:        node.Generate(),
				OrgID:     orgID,
				Type:      ruledomain.RuleTypeDispatch,
				Tiers:     dispatchTiers,
				UpdatedBy: orgID,
				CreatedAt: now,
				UpdatedAt: now,
			},
		}
		for i := range rules {
			if err := tx.Create(&rules[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
