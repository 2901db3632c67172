package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/haulbase/haulbase/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() identitydomain.Repository {
	return &repo{}
}

func (r *repo) FindProfile(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*identitydomain.Profile, error) {
	var row struct {
		UserID         snowflake.ID
		OrgID          snowflake.ID
		Status         identitydomain.UserStatus
		CommissionType identitydomain.CommissionType
		IsTeamLead     bool
	}
	err := db.WithContext(ctx).Raw(
		`SELECT u.id AS user_id, u.org_id, u.status, r.commission_type, r.is_team_lead
		 FROM users u
		 JOIN roles r ON r.id = u.role_id
		 WHERE u.id = ?`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.UserID == 0 {
		return nil, nil
	}
	return &identitydomain.Profile{
		UserID:         row.UserID,
		OrgID:          row.OrgID,
		Status:         row.Status,
		CommissionType: row.CommissionType,
		IsTeamLead:     row.IsTeamLead,
	}, nil
}

func (r *repo) ListActiveCommissionProfiles(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]identitydomain.Profile, error) {
	var rows []struct {
		UserID         snowflake.ID
		OrgID          snowflake.ID
		Status         identitydomain.UserStatus
		CommissionType identitydomain.CommissionType
		IsTeamLead     bool
	}
	query := `SELECT u.id AS user_id, u.org_id, u.status, r.commission_type, r.is_team_lead
		 FROM users u
		 JOIN roles r ON r.id = u.role_id
		 WHERE u.status = ? AND r.commission_type IN (?, ?)`
	args := []any{
		identitydomain.UserStatusActive,
		identitydomain.CommissionTypeSales,
		identitydomain.CommissionTypeDispatch,
	}
	if orgID != 0 {
		query += ` AND u.org_id = ?`
		args = append(args, orgID)
	}
	query += ` ORDER BY u.id`

	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	profiles := make([]identitydomain.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, identitydomain.Profile{
			UserID:         row.UserID,
			OrgID:          row.OrgID,
			Status:         row.Status,
			CommissionType: row.CommissionType,
			IsTeamLead:     row.IsTeamLead,
		})
	}
	return profiles, nil
}
