package reward

import (
	"context"
	"time"

	"gorm.io/gorm"

	"acthub-rewardengine/pkg/db/option"
)

// ItemPool owns reservation and compensation of individual reward
// instances. Reservation combines the locking read and the status flip into
// one conditional update so that no two concurrent callers can observe the
// same instance as reservable.
type ItemPool struct {
	// scanLimit caps how many AVAILABLE candidates one reservation inspects
	// before reporting a conflict on a hot pool.
	scanLimit int
}

func NewItemPool(scanLimit int) *ItemPool {
	if scanLimit <= 0 {
		scanLimit = 10
	}
	return &ItemPool{scanLimit: scanLimit}
}

// ReserveOne claims a single AVAILABLE instance of the reward for userID
// inside the caller's transaction. Items pre-bound to the user are taken
// first; unbound items next; items bound to someone else are never eligible.
//
// The claim itself is a conditional UPDATE guarded by status = AVAILABLE
// with a RowsAffected check, so a lost race surfaces as zero rows and the
// next candidate is tried. Returns ErrInsufficientStock when no eligible
// candidate remains and ErrConcurrencyConflict when every inspected
// candidate was lost to other callers.
func (p *ItemPool) ReserveOne(ctx context.Context, tx *gorm.DB, tenantID, rewardID, userID string) (*RewardItem, error) {
	conds := []func(*gorm.DB) *gorm.DB{
		func(q *gorm.DB) *gorm.DB { return q.Where("target_user_id = ?", userID) },
		func(q *gorm.DB) *gorm.DB {
			return q.Where("target_user_id IS NULL OR target_user_id = ''")
		},
	}

	sawCandidate := false
	for _, cond := range conds {
		var candidates []RewardItem
		q := tx.WithContext(ctx).
			Scopes(option.LockingUpdate).
			Where("tenant_id = ? AND reward_id = ? AND status = ?", tenantID, rewardID, ItemAvailable)
		if err := cond(q).Order("item_id").Limit(p.scanLimit).Find(&candidates).Error; err != nil {
			return nil, err
		}

		for i := range candidates {
			item := candidates[i]
			sawCandidate = true

			now := time.Now()
			res := tx.WithContext(ctx).
				Model(&RewardItem{}).
				Where("item_id = ? AND status = ?", item.ItemID, ItemAvailable).
				Updates(map[string]any{
					"status":      ItemAssigned,
					"assigned_to": userID,
					"assigned_at": now,
					"updated_at":  now,
				})
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 1 {
				item.Status = ItemAssigned
				item.AssignedTo = &userID
				item.AssignedAt = &now
				return &item, nil
			}
			// Zero rows: another caller claimed it first. Next candidate.
		}
	}

	if sawCandidate {
		return nil, ErrConcurrencyConflict
	}
	return nil, ErrInsufficientStock
}

// Release is the compensating transition ASSIGNED -> AVAILABLE, used when
// an assignment has to be undone outside its original transaction (admin
// correction, or a ledger write that failed after the reservation had
// already been made durable).
func (p *ItemPool) Release(ctx context.Context, db *gorm.DB, tenantID, itemID string) error {
	res := db.WithContext(ctx).
		Model(&RewardItem{}).
		Where("tenant_id = ? AND item_id = ? AND status = ?", tenantID, itemID, ItemAssigned).
		Updates(map[string]any{
			"status":      ItemAvailable,
			"assigned_to": nil,
			"assigned_at": nil,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Void marks an AVAILABLE item unusable. Admin correction only; assigned
// items cannot be voided.
func (p *ItemPool) Void(ctx context.Context, db *gorm.DB, tenantID, itemID string) error {
	res := db.WithContext(ctx).
		Model(&RewardItem{}).
		Where("tenant_id = ? AND item_id = ? AND status = ?", tenantID, itemID, ItemAvailable).
		Update("status", ItemVoid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
