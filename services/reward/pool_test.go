package reward

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReserveOne(t *testing.T) {
	db := newRewardDB(t)
	node := newNode(t)
	pool := NewItemPool(0)
	ctx := context.Background()

	seedReward(t, db, "rw-1", 2)
	seedItems(t, db, node, "rw-1", "code-a", "code-b")

	first, err := pool.ReserveOne(ctx, db, testTenant, "rw-1", "alice")
	require.NoError(t, err)
	require.Equal(t, ItemAssigned, first.Status)
	require.Equal(t, "alice", *first.AssignedTo)
	require.NotNil(t, first.AssignedAt)

	second, err := pool.ReserveOne(ctx, db, testTenant, "rw-1", "bob")
	require.NoError(t, err)
	require.NotEqual(t, first.ItemID, second.ItemID)

	_, err = pool.ReserveOne(ctx, db, testTenant, "rw-1", "carol")
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestReserveOne_PreBinding(t *testing.T) {
	db := newRewardDB(t)
	node := newNode(t)
	pool := NewItemPool(0)
	ctx := context.Background()

	seedReward(t, db, "rw-1", 2)
	alice := "alice"
	bound := RewardItem{
		ItemID: node.Generate().String(), TenantID: testTenant, RewardID: "rw-1",
		ItemValue: "bound", Status: ItemAvailable, TargetUserID: &alice,
	}
	require.NoError(t, db.Create(&bound).Error)
	seedItems(t, db, node, "rw-1", "unbound")

	// Alice gets her pre-bound item even when unbound stock exists.
	got, err := pool.ReserveOne(ctx, db, testTenant, "rw-1", "alice")
	require.NoError(t, err)
	require.Equal(t, bound.ItemID, got.ItemID)

	// Bob can only take the unbound one.
	got, err = pool.ReserveOne(ctx, db, testTenant, "rw-1", "bob")
	require.NoError(t, err)
	require.Equal(t, "unbound", got.ItemValue)
}

func TestReserveOne_BoundToOtherUserIsNotStock(t *testing.T) {
	db := newRewardDB(t)
	node := newNode(t)
	pool := NewItemPool(0)

	seedReward(t, db, "rw-1", 1)
	alice := "alice"
	require.NoError(t, db.Create(&RewardItem{
		ItemID: node.Generate().String(), TenantID: testTenant, RewardID: "rw-1",
		ItemValue: "bound", Status: ItemAvailable, TargetUserID: &alice,
	}).Error)

	_, err := pool.ReserveOne(context.Background(), db, testTenant, "rw-1", "bob")
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestReleaseAndVoid(t *testing.T) {
	db := newRewardDB(t)
	node := newNode(t)
	pool := NewItemPool(0)
	ctx := context.Background()

	seedReward(t, db, "rw-1", 2)
	items := seedItems(t, db, node, "rw-1", "code-a", "code-b")

	// Release only applies to ASSIGNED items.
	require.ErrorIs(t, pool.Release(ctx, db, testTenant, items[0].ItemID), gorm.ErrRecordNotFound)

	reserved, err := pool.ReserveOne(ctx, db, testTenant, "rw-1", "alice")
	require.NoError(t, err)
	require.NoError(t, pool.Release(ctx, db, testTenant, reserved.ItemID))

	var released RewardItem
	require.NoError(t, db.First(&released, "item_id = ?", reserved.ItemID).Error)
	require.Equal(t, ItemAvailable, released.Status)
	require.Nil(t, released.AssignedTo)
	require.Nil(t, released.AssignedAt)

	// Void only applies to AVAILABLE items.
	require.NoError(t, pool.Void(ctx, db, testTenant, items[1].ItemID))
	var voided RewardItem
	require.NoError(t, db.First(&voided, "item_id = ?", items[1].ItemID).Error)
	require.Equal(t, ItemVoid, voided.Status)

	require.ErrorIs(t, pool.Void(ctx, db, testTenant, items[1].ItemID), gorm.ErrRecordNotFound)

	reserved, err = pool.ReserveOne(ctx, db, testTenant, "rw-1", "bob")
	require.NoError(t, err)
	require.ErrorIs(t, pool.Void(ctx, db, testTenant, reserved.ItemID), gorm.ErrRecordNotFound)
}
