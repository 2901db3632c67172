package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/haulbase/haulbase/internal/clock"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	loaddomain "github.com/haulbase/haulbase/internal/load/domain"
	"github.com/haulbase/haulbase/pkg/db"
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
	loads       repository.Repository[loaddomain.Load]
	invoices    repository.Repository[loaddomain.FreightInvoice]
	coordinator commissiondomain.Coordinator
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Loads       repository.Repository[loaddomain.Load]
	Invoices    repository.Repository[loaddomain.FreightInvoice]
	Coordinator commissiondomain.Coordinator
}

func New(p ServiceParam) loaddomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("load.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		loads:       p.Loads,
		invoices:    p.Invoices,
		coordinator: p.Coordinator,
	}
}

func (s *Service) Create(ctx context.Context, req loaddomain.CreateRequest) (*loaddomain.Response, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(req.OrganizationID))
	if err != nil {
		return nil, loaddomain.ErrNotFound
	}
	assignedTo, err := snowflake.ParseString(strings.TrimSpace(req.AssignedTo))
	if err != nil {
		return nil, loaddomain.ErrNotFound
	}
	var leadID *snowflake.ID
	if trimmed := strings.TrimSpace(req.LeadID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil {
			return nil, loaddomain.ErrNotFound
		}
		leadID = &parsed
	}

	now := s.db.NowFunc()
	load := &loaddomain.Load{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		AssignedTo: assignedTo,
		LeadID:     leadID,
		Status:     loaddomain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.loads.Create(ctx, load); err != nil {
		return nil, err
	}
	return toResponse(load), nil
}

func (s *Service) List(ctx context.Context, organizationID string) ([]loaddomain.Response, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(organizationID))
	if err != nil {
		return nil, loaddomain.ErrNotFound
	}

	loads, err := s.loads.Find(ctx, &loaddomain.Load{OrgID: orgID},
		option.OrderBy("created_at DESC"),
		option.Limit(listLimit),
	)
	if err != nil {
		return nil, err
	}
	out := make([]loaddomain.Response, 0, len(loads))
	for _, load := range loads {
		out = append(out, *toResponse(load))
	}
	return out, nil
}

// RecordInvoice attaches the freight invoice a completed load is billed
// against. A load carries at most one invoice.
func (s *Service) RecordInvoice(ctx context.Context, loadID string, req loaddomain.InvoiceRequest) error {
	id, err := snowflake.ParseString(strings.TrimSpace(loadID))
	if err != nil {
		return loaddomain.ErrNotFound
	}
	if req.TotalAmount <= 0 {
		return loaddomain.ErrInvalidAmount
	}

	load, err := s.loads.FindOne(ctx, &loaddomain.Load{ID: id})
	if err != nil {
		return err
	}
	if load == nil {
		return loaddomain.ErrNotFound
	}

	issuedAt := s.clock.Now()
	if trimmed := strings.TrimSpace(req.IssuedAt); trimmed != "" {
		parsed, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			return loaddomain.ErrInvalidAmount
		}
		issuedAt = parsed
	}

	invoice := &loaddomain.FreightInvoice{
		ID:          s.genID.Generate(),
		OrgID:       load.OrgID,
		LoadID:      load.ID,
		TotalAmount: req.TotalAmount,
		IssuedAt:    issuedAt,
		CreatedAt:   s.db.NowFunc(),
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return loaddomain.ErrInvoiceExists
		}
		return err
	}
	return nil
}

// UpdateStatus moves a load through its lifecycle. Completion requires the
// freight invoice to be on file, stamps completed_at, and recomputes the
// dispatcher's commission for the completion month; the transition succeeds
// even when the recompute fails.
func (s *Service) UpdateStatus(ctx context.Context, id string, status loaddomain.Status, actor string) (*loaddomain.Response, error) {
	if !status.Valid() {
		return nil, loaddomain.ErrInvalidStatus
	}
	loadID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, loaddomain.ErrNotFound
	}

	load, err := s.loads.FindOne(ctx, &loaddomain.Load{ID: loadID})
	if err != nil {
		return nil, err
	}
	if load == nil {
		return nil, loaddomain.ErrNotFound
	}

	becameCompleted := status == loaddomain.StatusCompleted && load.Status != loaddomain.StatusCompleted
	if becameCompleted {
		invoice, err := s.invoices.FindOne(ctx, &loaddomain.FreightInvoice{LoadID: loadID})
		if err != nil {
			return nil, err
		}
		if invoice == nil {
			return nil, loaddomain.ErrInvoiceMissing
		}
	}

	now := s.db.NowFunc()
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	var completedAt time.Time
	if becameCompleted {
		completedAt = s.clock.Now()
		updates["completed_at"] = completedAt
	}
	if err := s.loads.Update(ctx, loadID.String(), updates); err != nil {
		return nil, err
	}
	load.Status = status
	load.UpdatedAt = now
	if becameCompleted {
		load.CompletedAt = &completedAt
	}

	if becameCompleted {
		s.recompute(ctx, load.AssignedTo, commissiondomain.MonthOf(completedAt), actor)
	}
	return toResponse(load), nil
}

func (s *Service) recompute(ctx context.Context, userID snowflake.ID, month commissiondomain.Month, actor string) {
	if _, err := s.coordinator.Trigger(ctx, userID, month, commissiondomain.TriggerOptions{Actor: actor}); err != nil {
		s.log.Warn("commission recompute after load completion failed",
			zap.String("user_id", userID.String()),
			zap.String("month", month.String()),
			zap.Error(err),
		)
	}
}

func toResponse(load *loaddomain.Load) *loaddomain.Response {
	resp := &loaddomain.Response{
		ID:          load.ID.String(),
		OrgID:       load.OrgID.String(),
		AssignedTo:  load.AssignedTo.String(),
		Status:      load.Status,
		CompletedAt: load.CompletedAt,
		CreatedAt:   load.CreatedAt,
	}
	if load.LeadID != nil {
		resp.LeadID = load.LeadID.String()
	}
	return resp
}
