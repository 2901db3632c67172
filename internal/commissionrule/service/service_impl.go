package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  ruledomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  ruledomain.Repository
}

func New(p ServiceParam) ruledomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("commissionrule.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Create inserts a new rule version. Existing versions are never mutated;
// the resolver picks the latest by updated_at.
func (s *Service) Create(ctx context.Context, req ruledomain.CreateRequest) (*ruledomain.Response, error) {
	orgID, err := parseID(req.OrganizationID)
	if err != nil {
		return nil, ruledomain.ErrInvalidOrganization
	}
	actorID, err := parseID(req.UpdatedBy)
	if err != nil {
		return nil, ruledomain.ErrInvalidActor
	}

	ruleType := ruledomain.RuleType(strings.TrimSpace(req.Type))
	if !ruleType.Valid() {
		return nil, ruledomain.ErrInvalidType
	}

	var tiers any
	switch ruleType {
	case ruledomain.RuleTypeSales:
		if err := validateSalesTiers(req.SalesTiers); err != nil {
			return nil, err
		}
		tiers = req.SalesTiers
	case ruledomain.RuleTypeDispatch:
		if err := validateDispatchTiers(req.DispatchTiers); err != nil {
			return nil, err
		}
		tiers = req.DispatchTiers
	}

	raw, err := json.Marshal(tiers)
	if err != nil {
		return nil, ruledomain.ErrInvalidTiers
	}

	now := s.db.NowFunc()
	rule := &ruledomain.CommissionRule{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Type:      ruleType,
		Tiers:     raw,
		UpdatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, rule); err != nil {
		return nil, err
	}

	s.log.Info("commission rule version created",
		zap.String("org_id", orgID.String()),
		zap.String("type", string(ruleType)),
		zap.String("rule_id", rule.ID.String()),
	)
	return toResponse(rule)
}

func (s *Service) List(ctx context.Context, organizationID string, ruleType string) ([]ruledomain.Response, error) {
	orgID, err := parseID(organizationID)
	if err != nil {
		return nil, ruledomain.ErrInvalidOrganization
	}
	rt := ruledomain.RuleType(strings.TrimSpace(ruleType))
	if rt != "" && !rt.Valid() {
		return nil, ruledomain.ErrInvalidType
	}

	rules, err := s.repo.ListVersions(ctx, s.db, orgID, rt)
	if err != nil {
		return nil, err
	}
	out := make([]ruledomain.Response, 0, len(rules))
	for i := range rules {
		resp, err := toResponse(&rules[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, organizationID string, id string) (*ruledomain.Response, error) {
	orgID, err := parseID(organizationID)
	if err != nil {
		return nil, ruledomain.ErrInvalidOrganization
	}
	ruleID, err := parseID(id)
	if err != nil {
		return nil, ruledomain.ErrInvalidID
	}
	rule, err := s.repo.FindByID(ctx, s.db, orgID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ruledomain.ErrNotFound
	}
	return toResponse(rule)
}

func (s *Service) Archive(ctx context.Context, organizationID string, id string, actorID string) error {
	orgID, err := parseID(organizationID)
	if err != nil {
		return ruledomain.ErrInvalidOrganization
	}
	ruleID, err := parseID(id)
	if err != nil {
		return ruledomain.ErrInvalidID
	}
	if _, err := parseID(actorID); err != nil {
		return ruledomain.ErrInvalidActor
	}
	return s.repo.Archive(ctx, s.db, orgID, ruleID)
}

func validateSalesTiers(tiers []ruledomain.SalesTier) error {
	if len(tiers) == 0 {
		return ruledomain.ErrInvalidTiers
	}
	for i, tier := range tiers {
		if tier.Active < 0 || tier.Fixed < 0 {
			return ruledomain.ErrInvalidTiers
		}
		// Ascending thresholds are a resolver precondition, enforced at entry.
		if i > 0 && tier.Active <= tiers[i-1].Active {
			return ruledomain.ErrInvalidTiers
		}
	}
	return nil
}

func validateDispatchTiers(tiers []ruledomain.DispatchTier) error {
	if len(tiers) == 0 {
		return ruledomain.ErrInvalidTiers
	}
	for i, tier := range tiers {
		if tier.Min < 0 || tier.Max < tier.Min {
			return ruledomain.ErrInvalidTiers
		}
		if i > 0 && tier.Min <= tiers[i-1].Max {
			return ruledomain.ErrInvalidTiers
		}
	}
	return nil
}

func toResponse(rule *ruledomain.CommissionRule) (*ruledomain.Response, error) {
	resp := &ruledomain.Response{
		ID:             rule.ID.String(),
		OrganizationID: rule.OrgID.String(),
		Type:           rule.Type,
		Archived:       rule.Archived,
		UpdatedBy:      rule.UpdatedBy.String(),
		UpdatedAt:      rule.UpdatedAt,
	}
	switch rule.Type {
	case ruledomain.RuleTypeSales:
		tiers, err := rule.SalesTiers()
		if err != nil {
			return nil, err
		}
		resp.SalesTiers = tiers
	case ruledomain.RuleTypeDispatch:
		tiers, err := rule.DispatchTiers()
		if err != nil {
			return nil, err
		}
		resp.DispatchTiers = tiers
	}
	return resp, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
