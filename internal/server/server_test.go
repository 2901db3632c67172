package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/haulbase/haulbase/internal/audit/domain"
	auditservice "github.com/haulbase/haulbase/internal/audit/service"
	"github.com/haulbase/haulbase/internal/clock"
	"github.com/haulbase/haulbase/internal/commission/collector"
	"github.com/haulbase/haulbase/internal/commission/coordinator"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	commissionscheduler "github.com/haulbase/haulbase/internal/commission/scheduler"
	"github.com/haulbase/haulbase/internal/commission/store"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	rulerepository "github.com/haulbase/haulbase/internal/commissionrule/repository"
	ruleservice "github.com/haulbase/haulbase/internal/commissionrule/service"
	"github.com/haulbase/haulbase/internal/config"
	identitydomain "github.com/haulbase/haulbase/internal/identity/domain"
	identityrepository "github.com/haulbase/haulbase/internal/identity/repository"
	leaddomain "github.com/haulbase/haulbase/internal/lead/domain"
	leadservice "github.com/haulbase/haulbase/internal/lead/service"
	loaddomain "github.com/haulbase/haulbase/internal/load/domain"
	loadservice "github.com/haulbase/haulbase/internal/load/service"
	"github.com/haulbase/haulbase/internal/notification"
	"github.com/haulbase/haulbase/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serverFixture struct {
	server *Server
	db     *gorm.DB
	node   *snowflake.Node
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&identitydomain.Role{},
		&identitydomain.User{},
		&leaddomain.Lead{},
		&leaddomain.Truck{},
		&loaddomain.Load{},
		&loaddomain.FreightInvoice{},
		&ruledomain.CommissionRule{},
		&commissiondomain.CommissionMonthly{},
		&auditdomain.ActivityLog{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	logger := zap.NewNop()
	systemClock := clock.NewSystemClock()

	identityRepo := identityrepository.Provide()
	ruleRepo := rulerepository.Provide()
	recordStore := store.New(store.Param{Log: logger})
	hub := notification.NewHub()

	coord := coordinator.New(coordinator.Params{
		DB:        db,
		Log:       logger,
		GenID:     node,
		CfgHolder: config.NewStaticCommissionConfigHolder(config.DefaultCommissionConfig()),
		Identity:  identityRepo,
		Rules:     ruleRepo,
		Collector: collector.New(collector.Param{Log: logger}),
		Store:     recordStore,
		Sink:      hub,
	})
	sched, err := commissionscheduler.New(commissionscheduler.Params{
		DB:          db,
		Log:         logger,
		Clock:       systemClock,
		Identity:    identityRepo,
		Coordinator: coord,
	})
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{DB: db, Log: logger, GenID: node})
	ruleSvc := ruleservice.New(ruleservice.ServiceParam{DB: db, Log: logger, GenID: node, Repo: ruleRepo})
	leadSvc := leadservice.New(leadservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: systemClock,
		Repo:        repository.ProvideStore[leaddomain.Lead](db),
		Coordinator: coord,
	})
	loadSvc := loadservice.New(loadservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: systemClock,
		Loads:       repository.ProvideStore[loaddomain.Load](db),
		Invoices:    repository.ProvideStore[loaddomain.FreightInvoice](db),
		Coordinator: coord,
	})

	srv := NewServer(ServerParams{
		Gin:         NewEngine(logger),
		Cfg:         config.Config{AppName: "haulbase", HTTPPort: "0"},
		DB:          db,
		GenID:       node,
		Clock:       systemClock,
		RuleSvc:     ruleSvc,
		Coordinator: coord,
		Records:     recordStore,
		Scheduler:   sched,
		LeadSvc:     leadSvc,
		LoadSvc:     loadSvc,
		AuditSvc:    auditSvc,
		Hub:         hub,
		Sink:        hub,
	})

	return &serverFixture{server: srv, db: db, node: node}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.engine.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) seedUser(t *testing.T, orgID snowflake.ID, commissionType identitydomain.CommissionType) snowflake.ID {
	t.Helper()
	role := identitydomain.Role{
		ID:             f.node.Generate(),
		OrgID:          orgID,
		Name:           string(commissionType),
		CommissionType: commissionType,
	}
	require.NoError(t, f.db.Create(&role).Error)
	user := identitydomain.User{
		ID:     f.node.Generate(),
		OrgID:  orgID,
		RoleID: role.ID,
		Email:  role.ID.String() + "@example.test",
		Status: identitydomain.UserStatusActive,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user.ID
}

func TestRecalculateEndpointFlow(t *testing.T) {
	f := setupServer(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales)

	rec := f.do(t, http.MethodPost, "/v1/commission-rules", gin.H{
		"organization_id": orgID.String(),
		"type":            "sales",
		"sales_tiers": []gin.H{
			{"active": 0, "fixed": 0},
			{"active": 5, "fixed": 1000},
		},
		"updated_by": userID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for i := 0; i < 6; i++ {
		source := "inbound"
		if i >= 2 {
			source = "outbound"
		}
		leadRec := f.do(t, http.MethodPost, "/v1/leads", gin.H{
			"organization_id": orgID.String(),
			"assigned_to":     userID.String(),
			"created_by":      userID.String(),
			"source":          source,
		})
		require.Equal(t, http.StatusOK, leadRec.Code)

		var created struct {
			Data leaddomain.Response `json:"data"`
		}
		require.NoError(t, json.Unmarshal(leadRec.Body.Bytes(), &created))
		statusRec := f.do(t, http.MethodPatch, "/v1/leads/"+created.Data.ID+"/status", gin.H{
			"status": "active",
			"actor":  "ops",
		})
		require.Equal(t, http.StatusOK, statusRec.Code)
	}

	month := commissiondomain.MonthOf(time.Now().UTC()).String()
	rec = f.do(t, http.MethodPost, "/v1/commissions/recalculate", gin.H{
		"user_id": userID.String(),
		"month":   month,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Data struct {
			Outcome string `json:"outcome"`
			Record  struct {
				Amount float64 `json:"amount"`
				Status string  `json:"status"`
			} `json:"record"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "calculated", result.Data.Outcome)
	// (2 inbound * 1000 * 0.75 + 4 outbound * 1000) / 6
	assert.InDelta(t, 916.67, result.Data.Record.Amount, 0.001)

	listRec := f.do(t, http.MethodGet,
		fmt.Sprintf("/v1/commissions?organization_id=%s&month=%s", orgID, month), nil)
	require.Equal(t, http.StatusOK, listRec.Code)
	var listed struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listed))
	assert.Len(t, listed.Data, 1)
}

func TestRecalculateEndpointValidation(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodPost, "/v1/commissions/recalculate", gin.H{
		"user_id": "123",
		"month":   "not-a-month",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/commissions/recalculate", gin.H{
		"user_id": f.node.Generate().String(),
		"month":   "2026-08",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown user maps to 404")
}

func TestApproveEndpointIsTerminal(t *testing.T) {
	f := setupServer(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales)

	rec := f.do(t, http.MethodPost, "/v1/commission-rules", gin.H{
		"organization_id": orgID.String(),
		"type":            "sales",
		"sales_tiers":     []gin.H{{"active": 0, "fixed": 250}},
		"updated_by":      userID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	month := commissiondomain.MonthOf(time.Now().UTC()).String()
	rec = f.do(t, http.MethodPost, "/v1/commissions/recalculate", gin.H{
		"user_id": userID.String(),
		"month":   month,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Data struct {
			Record struct {
				ID string `json:"id"`
			} `json:"record"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	recordID := result.Data.Record.ID

	approver := f.node.Generate().String()
	rec = f.do(t, http.MethodPost, "/v1/commissions/"+recordID+"/approve", gin.H{"approved_by": approver})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/v1/commissions/"+recordID+"/approve", gin.H{"approved_by": approver})
	assert.Equal(t, http.StatusConflict, rec.Code, "second approval conflicts")

	// A plain retrigger leaves the approved record alone.
	rec = f.do(t, http.MethodPost, "/v1/commissions/recalculate", gin.H{
		"user_id": userID.String(),
		"month":   month,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var guarded struct {
		Data struct {
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &guarded))
	assert.Equal(t, "skipped_approved", guarded.Data.Outcome)
}

func TestRecalculateAllEndpoint(t *testing.T) {
	f := setupServer(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales)

	rec := f.do(t, http.MethodPost, "/v1/commission-rules", gin.H{
		"organization_id": orgID.String(),
		"type":            "sales",
		"sales_tiers":     []gin.H{{"active": 0, "fixed": 100}},
		"updated_by":      userID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/commissions/recalculate-all", gin.H{
		"month": commissiondomain.MonthOf(time.Now().UTC()).String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Data struct {
			Total      int `json:"total"`
			Calculated int `json:"calculated"`
			Failed     int `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Data.Total)
	assert.Equal(t, 1, summary.Data.Calculated)
	assert.Zero(t, summary.Data.Failed)
}

func TestHealthEndpoint(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
