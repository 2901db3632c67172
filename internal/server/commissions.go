package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/haulbase/haulbase/internal/audit/domain"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	"github.com/haulbase/haulbase/internal/notification"
)

type recalculateRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Month  string `json:"month" binding:"required"`
	Force  bool   `json:"force"`
	Actor  string `json:"actor"`
}

type recalculateAllRequest struct {
	Month string `json:"month" binding:"required"`
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required"`
}

type commissionResponse struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	OrganizationID       string          `json:"organization_id"`
	Month                string          `json:"month"`
	Type                 string          `json:"type"`
	BaseAmount           float64         `json:"base_amount"`
	BonusAmount          float64         `json:"bonus_amount"`
	PercentageAdjustment float64         `json:"percentage_adjustment"`
	PenaltyPct           float64         `json:"penalty_pct"`
	Amount               float64         `json:"amount"`
	Status               string          `json:"status"`
	Metrics              json.RawMessage `json:"metrics"`
	ApprovedBy           string          `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time      `json:"approved_at,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func toCommissionResponse(record *commissiondomain.CommissionMonthly) commissionResponse {
	resp := commissionResponse{
		ID:                   record.ID.String(),
		UserID:               record.UserID.String(),
		OrganizationID:       record.OrgID.String(),
		Month:                record.Month.String(),
		Type:                 string(record.Type),
		BaseAmount:           record.BaseAmount,
		BonusAmount:          record.BonusAmount,
		PercentageAdjustment: record.PercentageAdjustment,
		PenaltyPct:           record.PenaltyPct,
		Amount:               record.Amount,
		Status:               string(record.Status),
		Metrics:              json.RawMessage(record.Metrics),
		ApprovedAt:           record.ApprovedAt,
		UpdatedAt:            record.UpdatedAt,
	}
	if record.ApprovedBy != nil {
		resp.ApprovedBy = record.ApprovedBy.String()
	}
	return resp
}

func (s *Server) RecalculateCommission(c *gin.Context) {
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil {
		AbortWithError(c, commissiondomain.ErrInvalidUser)
		return
	}
	month, err := commissiondomain.ParseMonth(strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.coordinator.Trigger(c.Request.Context(), userID, month, commissiondomain.TriggerOptions{
		Force: req.Force,
		Actor: strings.TrimSpace(req.Actor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payload := gin.H{"outcome": string(result.Outcome)}
	if result.Record != nil {
		payload["record"] = toCommissionResponse(result.Record)
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

func (s *Server) RecalculateAllCommissions(c *gin.Context) {
	var req recalculateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	month, err := commissiondomain.ParseMonth(strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.scheduler.CalculateAll(c.Request.Context(), month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	failures := make([]gin.H, 0, len(summary.Errors))
	for _, userErr := range summary.Errors {
		failures = append(failures, gin.H{
			"user_id": userErr.UserID,
			"error":   userErr.Err.Error(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"month":      summary.Month.String(),
		"total":      summary.Total,
		"calculated": summary.Calculated,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
		"failures":   failures,
	}})
}

func (s *Server) ListCommissions(c *gin.Context) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(c.Query("organization_id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	month, err := commissiondomain.ParseMonth(strings.TrimSpace(c.Query("month")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records, err := s.records.ListByOrgMonth(c.Request.Context(), s.db, orgID, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]commissionResponse, 0, len(records))
	for i := range records {
		out = append(out, toCommissionResponse(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) GetCommissionByID(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, commissiondomain.ErrRecordNotFound)
		return
	}

	record, err := s.records.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if record == nil {
		AbortWithError(c, commissiondomain.ErrRecordNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toCommissionResponse(record)})
}

// ApproveCommission freezes a calculated record. Approval is terminal: later
// event triggers and sweeps leave the row untouched unless forced.
func (s *Server) ApproveCommission(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, commissiondomain.ErrRecordNotFound)
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	approver, err := snowflake.ParseString(strings.TrimSpace(req.ApprovedBy))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.records.Approve(c.Request.Context(), s.db, id, approver)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.Record(c.Request.Context(), record.OrgID, approver.String(),
		auditdomain.ActionCommissionApproved, "commission_monthly", record.ID.String(),
		map[string]any{
			"user_id": record.UserID.String(),
			"month":   record.Month.String(),
			"amount":  record.Amount,
		})
	c.JSON(http.StatusOK, gin.H{"data": toCommissionResponse(record)})
}

// StreamCommissionEvents serves an SSE feed of commission updates for one
// organization, starting with a replay of the most recent facts.
func (s *Server) StreamCommissionEvents(c *gin.Context) {
	if s.hub == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	orgID := strings.TrimSpace(c.Query("organization_id"))
	if _, err := snowflake.ParseString(orgID); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, replay, err := s.hub.Subscribe(orgID)
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	for _, fact := range replay {
		writeFactEvent(c.Writer, fact)
	}
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case fact, ok := <-sub.Events():
			if !ok {
				return
			}
			writeFactEvent(c.Writer, fact)
			c.Writer.Flush()
		}
	}
}

func writeFactEvent(w io.Writer, fact notification.Fact) {
	payload, err := json.Marshal(fact)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: commission.updated\ndata: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
}
