package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/haulbase/haulbase/internal/audit/domain"
	"github.com/haulbase/haulbase/internal/commission/collector"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	"github.com/haulbase/haulbase/internal/commission/store"
	ruledomain "github.com/haulbase/haulbase/internal/commissionrule/domain"
	rulerepository "github.com/haulbase/haulbase/internal/commissionrule/repository"
	"github.com/haulbase/haulbase/internal/config"
	identitydomain "github.com/haulbase/haulbase/internal/identity/domain"
	identityrepository "github.com/haulbase/haulbase/internal/identity/repository"
	leaddomain "github.com/haulbase/haulbase/internal/lead/domain"
	loaddomain "github.com/haulbase/haulbase/internal/load/domain"
	"github.com/haulbase/haulbase/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sinkRecorder struct {
	mu    sync.Mutex
	facts []notification.Fact
}

func (s *sinkRecorder) Publish(_ context.Context, fact notification.Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, fact)
}

func (s *sinkRecorder) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.facts)
}

type coordinatorFixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	coord commissiondomain.Coordinator
	store commissiondomain.Store
	sink  *sinkRecorder
}

func setupCoordinator(t *testing.T) *coordinatorFixture {
	t.Helper()

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

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	sink := &sinkRecorder{}

	recordStore := store.New(store.Param{Log: logger})
	coord := New(Params{
		DB:        db,
		Log:       logger,
		GenID:     node,
		CfgHolder: config.NewStaticCommissionConfigHolder(config.DefaultCommissionConfig()),
		Identity:  identityrepository.Provide(),
		Rules:     rulerepository.Provide(),
		Collector: collector.New(collector.Param{Log: logger}),
		Store:     recordStore,
		Sink:      sink,
	})

	return &coordinatorFixture{
		db:    db,
		node:  node,
		coord: coord,
		store: recordStore,
		sink:  sink,
	}
}

func (f *coordinatorFixture) seedUser(t *testing.T, orgID snowflake.ID, commissionType identitydomain.CommissionType, teamLead bool) snowflake.ID {
	t.Helper()
	role := identitydomain.Role{
		ID:             f.node.Generate(),
		OrgID:          orgID,
		Name:           string(commissionType),
		CommissionType: commissionType,
		IsTeamLead:     teamLead,
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

func (f *coordinatorFixture) seedSalesRule(t *testing.T, orgID snowflake.ID, tiers []ruledomain.SalesTier) {
	t.Helper()
	raw, err := json.Marshal(tiers)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&ruledomain.CommissionRule{
		ID:        f.node.Generate(),
		OrgID:     orgID,
		Type:      ruledomain.RuleTypeSales,
		Tiers:     raw,
		UpdatedBy: f.node.Generate(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}).Error)
}

func (f *coordinatorFixture) seedLeads(t *testing.T, orgID, userID snowflake.ID, inbound, outbound int) {
	t.Helper()
	for i := 0; i < inbound+outbound; i++ {
		source := leaddomain.SourceInbound
		if i >= inbound {
			source = leaddomain.SourceOutbound
		}
		require.NoError(t, f.db.Create(&leaddomain.Lead{
			ID:         f.node.Generate(),
			OrgID:      orgID,
			AssignedTo: userID,
			CreatedBy:  userID,
			Source:     source,
			Status:     leaddomain.StatusActive,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}).Error)
	}
}

func TestTrigger_SalesCalculatesAndPersists(t *testing.T) {
	f := setupCoordinator(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales, false)
	f.seedSalesRule(t, orgID, []ruledomain.SalesTier{
		{Active: 0, Fixed: 0},
		{Active: 5, Fixed: 1000},
	})
	f.seedLeads(t, orgID, userID, 2, 4)

	result, err := f.coord.Trigger(context.Background(), userID, commissiondomain.Month("2026-08"), commissiondomain.TriggerOptions{})
	require.NoError(t, err)
	require.Equal(t, commissiondomain.OutcomeCalculated, result.Outcome)
	require.NotNil(t, result.Record)

	// (2 inbound * 1000 * 0.75 + 4 outbound * 1000) / 6 active leads
	assert.InDelta(t, 916.67, result.Record.Amount, 0.001)
	assert.Equal(t, commissiondomain.StatusCalculated, result.Record.Status)
	assert.Equal(t, 1, f.sink.Count())

	var snapshot commissiondomain.MetricsSnapshot
	require.NoError(t, json.Unmarshal(result.Record.Metrics, &snapshot))
	assert.Equal(t, 6, snapshot.ActiveLeads)
	assert.NotEmpty(t, snapshot.RuleID)
}

func TestTrigger_Idempotent(t *testing.T) {
	f := setupCoordinator(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales, false)
	f.seedSalesRule(t, orgID, []ruledomain.SalesTier{{Active: 0, Fixed: 500}})
	f.seedLeads(t, orgID, userID, 1, 2)

	month := commissiondomain.Month("2026-08")
	first, err := f.coord.Trigger(context.Background(), userID, month, commissiondomain.TriggerOptions{})
	require.NoError(t, err)
	second, err := f.coord.Trigger(context.Background(), userID, month, commissiondomain.TriggerOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Record.Amount, second.Record.Amount)
	assert.Equal(t, first.Record.ID, second.Record.ID, "rerun must update in place, not insert")

	var count int64
	require.NoError(t, f.db.Model(&commissiondomain.CommissionMonthly{}).
		Where("user_id = ? AND month = ?", userID, month).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTrigger_ConcurrentRunsProduceOneRecord(t *testing.T) {
	f := setupCoordinator(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales, false)
	f.seedSalesRule(t, orgID, []ruledomain.SalesTier{{Active: 0, Fixed: 800}})
	f.seedLeads(t, orgID, userID, 3, 3)

	month := commissiondomain.Month("2026-08")
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.coord.Trigger(context.Background(), userID, month, commissiondomain.TriggerOptions{})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var records []commissiondomain.CommissionMonthly
	require.NoError(t, f.db.Where("user_id = ? AND month = ?", userID, month).Find(&records).Error)
	require.Len(t, records, 1)
	// base (3*800*0.75 + 3*800) / 6
	assert.InDelta(t, 700, records[0].Amount, 0.001)
}

func TestTrigger_NoRuleSkipsWithoutWriting(t *testing.T) {
	f := setupCoordinator(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales, false)
	f.seedLeads(t, orgID, userID, 2, 2)

	result, err := f.coord.Trigger(context.Background(), userID, commissiondomain.Month("2026-08"), commissiondomain.TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.OutcomeNoRule, result.Outcome)
	assert.Nil(t, result.Record)

	var count int64
	require.NoError(t, f.db.Model(&commissiondomain.CommissionMonthly{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.sink.Count())
}

func TestTrigger_RoleNotEligible(t *testing.T) {
	f := setupCoordinator(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeNone, false)

	result, err := f.coord.Trigger(context.Background(), userID, commissiondomain.Month("2026-08"), commissiondomain.TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.OutcomeRoleNotEligible, result.Outcome)
	assert.Nil(t, result.Record)
}

func TestTrigger_UnknownUser(t *testing.T) {
	f := setupCoordinator(t)

	_, err := f.coord.Trigger(context.Background(), f.node.Generate(), commissiondomain.Month("2026-08"), commissiondomain.TriggerOptions{})
	assert.ErrorIs(t, err, commissiondomain.ErrUserNotFound)
}

func TestTrigger_ApprovedGuardAndForce(t *testing.T) {
	f := setupCoordinator(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales, false)
	f.seedSalesRule(t, orgID, []ruledomain.SalesTier{{Active: 0, Fixed: 600}})
	f.seedLeads(t, orgID, userID, 0, 4)

	ctx := context.Background()
	month := commissiondomain.Month("2026-08")
	first, err := f.coord.Trigger(ctx, userID, month, commissiondomain.TriggerOptions{})
	require.NoError(t, err)
	approvedAmount := first.Record.Amount

	approver := f.node.Generate()
	_, err = f.store.Approve(ctx, f.db, first.Record.ID, approver)
	require.NoError(t, err)

	// Metric drift after approval must not leak into the frozen record.
	f.seedLeads(t, orgID, userID, 3, 0)

	guarded, err := f.coord.Trigger(ctx, userID, month, commissiondomain.TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.OutcomeApprovedGuard, guarded.Outcome)
	require.NotNil(t, guarded.Record)
	assert.Equal(t, approvedAmount, guarded.Record.Amount)

	forced, err := f.coord.Trigger(ctx, userID, month, commissiondomain.TriggerOptions{Force: true, Actor: approver.String()})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.OutcomeCalculated, forced.Outcome)
	assert.NotEqual(t, approvedAmount, forced.Record.Amount)
}

func TestTrigger_InvalidMonth(t *testing.T) {
	f := setupCoordinator(t)
	orgID := f.node.Generate()
	userID := f.seedUser(t, orgID, identitydomain.CommissionTypeSales, false)

	_, err := f.coord.Trigger(context.Background(), userID, commissiondomain.Month("August 2026"), commissiondomain.TriggerOptions{})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidMonth)
}
