package reward

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"acthub-rewardengine/services/participation"
	"acthub-rewardengine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const testTenant = "tenant-1"

func newRewardDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewTestDB(t,
		&Reward{}, &RewardItem{}, &RewardPayout{},
		&participation.Task{}, &participation.Participation{}, &participation.TaskTarget{},
	)
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// sinkMock captures audit notifications for assertions.
type sinkMock struct {
	mu       sync.Mutex
	payloads []PayoutEventPayload
}

func (s *sinkMock) NotifyBatchResult(_ context.Context, p PayoutEventPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
}

func (s *sinkMock) last(t *testing.T) PayoutEventPayload {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.payloads)
	return s.payloads[len(s.payloads)-1]
}

// seqMock mints predictable item values without Redis.
type seqMock struct {
	mu   sync.Mutex
	next int
}

func (s *seqMock) NextRewardItemCode(context.Context, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return "RWD-TEST-" + string(rune('A'+s.next-1)), nil
}

func newTestEngine(t *testing.T, db *gorm.DB, sink AuditSink) *Engine {
	t.Helper()
	if sink == nil {
		sink = NopAuditSink{}
	}
	return NewEngine(EngineParams{
		DB:     db,
		Node:   newNode(t),
		Pool:   NewItemPool(0),
		Source: participation.NewSource(participation.SourceParams{DB: db}),
		Audit:  sink,
	})
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	engine := newTestEngine(t, db, nil)
	return NewService(ServiceParams{
		DB:     db,
		Node:   newNode(t),
		Seq:    &seqMock{},
		Engine: engine,
		Pool:   NewItemPool(0),
	})
}

func seedReward(t *testing.T, db *gorm.DB, rewardID string, total int64) *Reward {
	t.Helper()
	rw := &Reward{
		RewardID:      rewardID,
		TenantID:      testTenant,
		Name:          "launch coupon",
		Type:          "coupon",
		TotalQuantity: total,
		Status:        RewardActive,
	}
	require.NoError(t, db.Create(rw).Error)
	return rw
}

func seedItems(t *testing.T, db *gorm.DB, node *snowflake.Node, rewardID string, values ...string) []RewardItem {
	t.Helper()
	items := make([]RewardItem, 0, len(values))
	for _, v := range values {
		item := RewardItem{
			ItemID:    node.Generate().String(),
			TenantID:  testTenant,
			RewardID:  rewardID,
			ItemValue: v,
			Status:    ItemAvailable,
		}
		require.NoError(t, db.Create(&item).Error)
		items = append(items, item)
	}
	return items
}

func seedTask(t *testing.T, db *gorm.DB, taskID string) {
	t.Helper()
	require.NoError(t, db.Create(&participation.Task{
		TaskID:   taskID,
		TenantID: testTenant,
		Title:    "signup challenge",
		Status:   participation.TaskOpen,
	}).Error)
}

func seedApproved(t *testing.T, db *gorm.DB, node *snowflake.Node, taskID string, users ...string) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, db.Create(&participation.Participation{
			ParticipationID: node.Generate().String(),
			TenantID:        testTenant,
			TaskID:          taskID,
			UserID:          u,
			Status:          participation.ParticipationApproved,
		}).Error)
	}
}

func seedTargets(t *testing.T, db *gorm.DB, node *snowflake.Node, taskID string, users ...string) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, db.Create(&participation.TaskTarget{
			TargetID: node.Generate().String(),
			TenantID: testTenant,
			TaskID:   taskID,
			UserID:   u,
		}).Error)
	}
}

func userIDs(prefix string, n int) []string {
	users := make([]string, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, prefix+"-"+string(rune('a'+i)))
	}
	return users
}

func itemValues(prefix string, n int) []string {
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		values = append(values, prefix+"-"+string(rune('a'+i)))
	}
	return values
}
