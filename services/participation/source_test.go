package participation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"acthub-rewardengine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const testTenant = "tenant-1"

func newSourceDB(t *testing.T) (*gorm.DB, *GormSource) {
	t.Helper()
	db := testutil.NewTestDB(t, &Task{}, &Participation{}, &TaskTarget{})
	return db, NewSource(SourceParams{DB: db})
}

func TestTaskExists(t *testing.T) {
	db, src := newSourceDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&Task{
		TaskID: "task-1", TenantID: testTenant, Title: "signup challenge", Status: TaskOpen,
	}).Error)

	exists, err := src.TaskExists(ctx, testTenant, "task-1")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = src.TaskExists(ctx, testTenant, "task-missing")
	require.NoError(t, err)
	require.False(t, exists)

	// Tenant isolation: the task is invisible to other tenants.
	exists, err = src.TaskExists(ctx, "tenant-other", "task-1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListApprovedParticipants(t *testing.T) {
	db, src := newSourceDB(t)

	base := time.Now().Add(-time.Hour)
	rows := []Participation{
		{ParticipationID: "p-1", TenantID: testTenant, TaskID: "task-1", UserID: "carol", Status: ParticipationApproved, CreatedAt: base},
		{ParticipationID: "p-2", TenantID: testTenant, TaskID: "task-1", UserID: "alice", Status: ParticipationApproved, CreatedAt: base.Add(time.Minute)},
		{ParticipationID: "p-3", TenantID: testTenant, TaskID: "task-1", UserID: "bob", Status: ParticipationPending, CreatedAt: base.Add(2 * time.Minute)},
		{ParticipationID: "p-4", TenantID: testTenant, TaskID: "task-1", UserID: "dave", Status: ParticipationRejected, CreatedAt: base.Add(3 * time.Minute)},
		{ParticipationID: "p-5", TenantID: testTenant, TaskID: "task-other", UserID: "erin", Status: ParticipationApproved, CreatedAt: base.Add(4 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	users, err := src.ListApprovedParticipants(context.Background(), testTenant, "task-1")
	require.NoError(t, err)
	require.Equal(t, []string{"carol", "alice"}, users)
}

func TestListTargetUsers(t *testing.T) {
	db, src := newSourceDB(t)

	base := time.Now().Add(-time.Hour)
	rows := []TaskTarget{
		{TargetID: "t-1", TenantID: testTenant, TaskID: "task-1", UserID: "alice", CreatedAt: base},
		{TargetID: "t-2", TenantID: testTenant, TaskID: "task-1", UserID: "bob", CreatedAt: base.Add(time.Minute)},
		{TargetID: "t-3", TenantID: testTenant, TaskID: "task-other", UserID: "carol", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	users, err := src.ListTargetUsers(context.Background(), testTenant, "task-1")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, users)

	users, err = src.ListTargetUsers(context.Background(), testTenant, "task-empty")
	require.NoError(t, err)
	require.Empty(t, users)
}
