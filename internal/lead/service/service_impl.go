package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/haulbase/haulbase/internal/clock"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	leaddomain "github.com/haulbase/haulbase/internal/lead/domain"
	"github.com/haulbase/haulbase/pkg/db/option"
	"github.com/haulbase/haulbase/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const listLimit = 200

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        repository.Repository[leaddomain.Lead]
	coordinator commissiondomain.Coordinator
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        repository.Repository[leaddomain.Lead]
	Coordinator commissiondomain.Coordinator
}

func New(p ServiceParam) leaddomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("lead.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		coordinator: p.Coordinator,
	}
}

func (s *Service) Create(ctx context.Context, req leaddomain.CreateRequest) (*leaddomain.Response, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(req.OrganizationID))
	if err != nil {
		return nil, leaddomain.ErrNotFound
	}
	assignedTo, err := snowflake.ParseString(strings.TrimSpace(req.AssignedTo))
	if err != nil {
		return nil, leaddomain.ErrNotFound
	}
	createdBy, err := snowflake.ParseString(strings.TrimSpace(req.CreatedBy))
	if err != nil {
		return nil, leaddomain.ErrNotFound
	}
	source := leaddomain.Source(strings.TrimSpace(req.Source))
	if !source.Valid() {
		return nil, leaddomain.ErrInvalidSource
	}

	now := s.db.NowFunc()
	lead := &leaddomain.Lead{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		AssignedTo: assignedTo,
		CreatedBy:  createdBy,
		Source:     source,
		Status:     leaddomain.StatusNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, err
	}
	return toResponse(lead), nil
}

func (s *Service) List(ctx context.Context, organizationID string) ([]leaddomain.Response, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(organizationID))
	if err != nil {
		return nil, leaddomain.ErrNotFound
	}

	leads, err := s.repo.Find(ctx, &leaddomain.Lead{OrgID: orgID},
		option.OrderBy("created_at DESC"),
		option.Limit(listLimit),
	)
	if err != nil {
		return nil, err
	}
	out := make([]leaddomain.Response, 0, len(leads))
	for _, lead := range leads {
		out = append(out, *toResponse(lead))
	}
	return out, nil
}

// UpdateStatus moves a lead through its lifecycle. A transition into active
// recomputes the assignee's commission for the current month; the transition
// itself succeeds even when the recompute fails.
func (s *Service) UpdateStatus(ctx context.Context, id string, status leaddomain.Status, actor string) (*leaddomain.Response, error) {
	if !status.Valid() {
		return nil, leaddomain.ErrInvalidStatus
	}
	leadID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, leaddomain.ErrNotFound
	}

	lead, err := s.repo.FindOne(ctx, &leaddomain.Lead{ID: leadID})
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, leaddomain.ErrNotFound
	}

	becameActive := status == leaddomain.StatusActive && lead.Status != leaddomain.StatusActive

	now := s.db.NowFunc()
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if becameActive {
		updates["activated_at"] = now
	}
	if err := s.repo.Update(ctx, leadID.String(), updates); err != nil {
		return nil, err
	}
	lead.Status = status
	lead.UpdatedAt = now
	if becameActive {
		lead.ActivatedAt = &now
	}

	if becameActive {
		s.recompute(ctx, lead.AssignedTo, actor)
	}
	return toResponse(lead), nil
}

func (s *Service) recompute(ctx context.Context, userID snowflake.ID, actor string) {
	month := commissiondomain.MonthOf(s.clock.Now())
	if _, err := s.coordinator.Trigger(ctx, userID, month, commissiondomain.TriggerOptions{Actor: actor}); err != nil {
		s.log.Warn("commission recompute after lead activation failed",
			zap.String("user_id", userID.String()),
			zap.String("month", month.String()),
			zap.Error(err),
		)
	}
}

func toResponse(lead *leaddomain.Lead) *leaddomain.Response {
	return &leaddomain.Response{
		ID:          lead.ID.String(),
		OrgID:       lead.OrgID.String(),
		AssignedTo:  lead.AssignedTo.String(),
		CreatedBy:   lead.CreatedBy.String(),
		Source:      lead.Source,
		Status:      lead.Status,
		ActivatedAt: lead.ActivatedAt,
		CreatedAt:   lead.CreatedAt,
	}
}
