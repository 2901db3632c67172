package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/haulbase/haulbase/internal/audit/domain"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
)

func (s *Server) CreateCommissionRule(c *gin.Context) {
	var req ruledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.ruleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommissionRules(c *gin.Context) {
	resp, err := s.ruleSvc.List(c.Request.Context(),
		strings.TrimSpace(c.Query("organization_id")),
		strings.TrimSpace(c.Query("type")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCommissionRuleByID(c *gin.Context) {
	resp, err := s.ruleSvc.Get(c.Request.Context(),
		strings.TrimSpace(c.Query("organization_id")),
		strings.TrimSpace(c.Param("id")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type archiveRuleRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
}

func (s *Server) ArchiveCommissionRule(c *gin.Context) {
	var req archiveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orgID := strings.TrimSpace(c.Query("organization_id"))
	ruleID := strings.TrimSpace(c.Param("id"))
	if err := s.ruleSvc.Archive(c.Request.Context(), orgID, ruleID, strings.TrimSpace(req.ActorID)); err != nil {
		AbortWithError(c, err)
		return
	}

	if parsedOrg, err := parseSnowflakeParam(orgID); err == nil {
		_ = s.auditSvc.Record(c.Request.Context(), parsedOrg, strings.TrimSpace(req.ActorID),
			auditdomain.ActionRuleArchived, "commission_rule", ruleID, nil)
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"archived": true}})
}
