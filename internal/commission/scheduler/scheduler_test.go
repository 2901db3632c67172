package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/haulbase/haulbase/internal/clock"
	commissiondomain "github.com/haulbase/haulbase/internal/commission/domain"
	identitydomain "github.com/haulbase/haulbase/internal/identity/domain"
	identityrepository "github.com/haulbase/haulbase/internal/identity/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type coordinatorStub struct {
	mu       sync.Mutex
	calls    []snowflake.ID
	failFor  map[snowflake.ID]error
	outcomes map[snowflake.ID]commissiondomain.Outcome
}

func (c *coordinatorStub) Trigger(_ context.Context, userID snowflake.ID, _ commissiondomain.Month, _ commissiondomain.TriggerOptions) (*commissiondomain.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, userID)
	if err, ok := c.failFor[userID]; ok {
		return nil, err
	}
	outcome := commissiondomain.OutcomeCalculated
	if o, ok := c.outcomes[userID]; ok {
		outcome = o
	}
	return &commissiondomain.Result{Outcome: outcome}, nil
}

func (c *coordinatorStub) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func setupScheduler(t *testing.T, coord commissiondomain.Coordinator, clk clock.Clock) (*Scheduler, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&identitydomain.Role{}, &identitydomain.User{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	sched, err := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clk,
		Identity:    identityrepository.Provide(),
		Coordinator: coord,
		Config:      Config{Workers: 2, UserTimeout: time.Second},
	})
	require.NoError(t, err)
	return sched, db, node
}

func seedCommissionUser(t *testing.T, db *gorm.DB, node *snowflake.Node, commissionType identitydomain.CommissionType, status identitydomain.UserStatus) snowflake.ID {
	t.Helper()
	role := identitydomain.Role{
		ID:             node.Generate(),
		OrgID:          node.Generate(),
		Name:           string(commissionType),
		CommissionType: commissionType,
	}
	require.NoError(t, db.Create(&role).Error)
	user := identitydomain.User{
		ID:     node.Generate(),
		OrgID:  role.OrgID,
		RoleID: role.ID,
		Email:  role.ID.String() + "@example.test",
		Status: status,
	}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

func TestCalculateAll_SweepsEveryEligibleUser(t *testing.T) {
	coord := &coordinatorStub{}
	sched, db, node := setupScheduler(t, coord, clock.NewSystemClock())

	for i := 0; i < 3; i++ {
		seedCommissionUser(t, db, node, identitydomain.CommissionTypeSales, identitydomain.UserStatusActive)
	}
	seedCommissionUser(t, db, node, identitydomain.CommissionTypeDispatch, identitydomain.UserStatusActive)
	// Out of scope for a sweep: inactive users and non-commission roles.
	seedCommissionUser(t, db, node, identitydomain.CommissionTypeSales, identitydomain.UserStatusInactive)
	seedCommissionUser(t, db, node, identitydomain.CommissionTypeNone, identitydomain.UserStatusActive)

	summary, err := sched.CalculateAll(context.Background(), commissiondomain.Month("2026-08"))
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 4, summary.Calculated)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 4, coord.Calls())
}

func TestCalculateAll_IsolatesUserFailures(t *testing.T) {
	coord := &coordinatorStub{failFor: map[snowflake.ID]error{}}
	sched, db, node := setupScheduler(t, coord, clock.NewSystemClock())

	okUser := seedCommissionUser(t, db, node, identitydomain.CommissionTypeSales, identitydomain.UserStatusActive)
	badUser := seedCommissionUser(t, db, node, identitydomain.CommissionTypeSales, identitydomain.UserStatusActive)
	coord.failFor[badUser] = errors.New("metrics backend down")

	summary, err := sched.CalculateAll(context.Background(), commissiondomain.Month("2026-08"))
	require.NoError(t, err, "one bad user must not abort the sweep")

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Calculated)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, badUser.String(), summary.Errors[0].UserID)
	assert.Equal(t, 2, coord.Calls())
	_ = okUser
}

func TestCalculateAll_CountsSkips(t *testing.T) {
	coord := &coordinatorStub{outcomes: map[snowflake.ID]commissiondomain.Outcome{}}
	sched, db, node := setupScheduler(t, coord, clock.NewSystemClock())

	seedCommissionUser(t, db, node, identitydomain.CommissionTypeSales, identitydomain.UserStatusActive)
	skipped := seedCommissionUser(t, db, node, identitydomain.CommissionTypeDispatch, identitydomain.UserStatusActive)
	coord.outcomes[skipped] = commissiondomain.OutcomeNoRule

	summary, err := sched.CalculateAll(context.Background(), commissiondomain.Month("2026-08"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Calculated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)
}

func TestCalculateAll_InvalidMonth(t *testing.T) {
	sched, _, _ := setupScheduler(t, &coordinatorStub{}, clock.NewSystemClock())

	_, err := sched.CalculateAll(context.Background(), commissiondomain.Month("2026/08"))
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidMonth)
}

func TestCalculateAll_StopsFeedingOnCancel(t *testing.T) {
	coord := &coordinatorStub{}
	sched, db, node := setupScheduler(t, coord, clock.NewSystemClock())
	for i := 0; i < 10; i++ {
		seedCommissionUser(t, db, node, identitydomain.CommissionTypeSales, identitydomain.UserStatusActive)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sched.CalculateAll(ctx, commissiondomain.Month("2026-08"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, coord.Calls())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.UserTimeout)

	custom := Config{RunInterval: time.Minute, Workers: 8, UserTimeout: 5 * time.Second}.withDefaults()
	assert.Equal(t, time.Minute, custom.RunInterval)
	assert.Equal(t, 8, custom.Workers)
}
