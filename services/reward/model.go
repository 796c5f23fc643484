package reward

import (
	"time"

	"gorm.io/datatypes"
)

type RewardStatus string

// 'active', 'paused', 'archived'
var (
	RewardActive   RewardStatus = "active"
	RewardPaused   RewardStatus = "paused"
	RewardArchived RewardStatus = "archived"
)

func (s RewardStatus) String() string {
	switch s {
	case RewardActive, RewardPaused, RewardArchived:
		return string(s)
	default:
		return ""
	}
}

type ItemStatus string

var (
	ItemAvailable ItemStatus = "AVAILABLE"
	ItemAssigned  ItemStatus = "ASSIGNED"
	ItemVoid      ItemStatus = "VOID"
)

type PayoutOutcome string

var (
	OutcomeSuccess PayoutOutcome = "SUCCESS"
	OutcomeFailed  PayoutOutcome = "FAILED"
)

// Scope selects which users a payout batch addresses.
type Scope string

var (
	ScopeApprovedUsers Scope = "APPROVED_USERS"
	ScopeTargetedUsers Scope = "TARGETED_USERS"
)

func (s Scope) Valid() bool {
	return s == ScopeApprovedUsers || s == ScopeTargetedUsers
}

// Reward is a prize definition with finite total stock and an issued counter.
//
// issued_quantity is mutated only through atomic delta updates inside payout
// transactions and never decreases. 0 <= issued_quantity <= total_quantity
// holds at every observable point.
type Reward struct {
	RewardID       string       `gorm:"column:reward_id;primaryKey" json:"reward_id"`
	TenantID       string       `gorm:"column:tenant_id;index;not null" json:"tenant_id"`
	Name           string       `gorm:"column:name;not null" json:"name"`
	Type           string       `gorm:"column:type;not null" json:"type"` // e.g. coupon, shipment_slot
	TotalQuantity  int64        `gorm:"column:total_quantity;not null;default:0" json:"total_quantity"`
	IssuedQuantity int64        `gorm:"column:issued_quantity;not null;default:0" json:"issued_quantity"`
	StartsAt       *time.Time   `gorm:"column:starts_at" json:"starts_at,omitempty"`
	EndsAt         *time.Time   `gorm:"column:ends_at" json:"ends_at,omitempty"`
	Status         RewardStatus `gorm:"column:status;not null;default:'active'" json:"status"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Reward) TableName() string { return "rewards" }

// Issuable reports whether payouts may draw from this reward at the given
// time: active status and inside the validity window.
func (r *Reward) Issuable(now time.Time) bool {
	if r.Status != RewardActive {
		return false
	}
	if r.StartsAt != nil && now.Before(*r.StartsAt) {
		return false
	}
	if r.EndsAt != nil && now.After(*r.EndsAt) {
		return false
	}
	return true
}

// RewardItem is one allocable instance under a Reward, e.g. a coupon code.
// status transitions are monotone: AVAILABLE -> ASSIGNED at most once,
// AVAILABLE -> VOID by admin correction, ASSIGNED -> AVAILABLE only via the
// explicit release compensation.
type RewardItem struct {
	ItemID       string     `gorm:"column:item_id;primaryKey" json:"item_id"`
	TenantID     string     `gorm:"column:tenant_id;index;not null;uniqueIndex:ux_reward_item_value,priority:1" json:"tenant_id"`
	RewardID     string     `gorm:"column:reward_id;index;not null;uniqueIndex:ux_reward_item_value,priority:2" json:"reward_id"`
	ItemValue    string     `gorm:"column:item_value;not null;uniqueIndex:ux_reward_item_value,priority:3" json:"-"`
	Status       ItemStatus `gorm:"column:status;index;not null;default:'AVAILABLE'" json:"status"`
	TargetUserID *string    `gorm:"column:target_user_id" json:"target_user_id,omitempty"`
	TargetPhone  *string    `gorm:"column:target_phone" json:"target_phone,omitempty"`
	AssignedTo   *string    `gorm:"column:assigned_to" json:"assigned_to,omitempty"`
	AssignedAt   *time.Time `gorm:"column:assigned_at" json:"assigned_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (RewardItem) TableName() string { return "reward_items" }

// PreBound reports whether the item may only go to a designated user.
func (i *RewardItem) PreBound() bool {
	return i.TargetUserID != nil && *i.TargetUserID != ""
}

// RewardPayout is one append-only ledger row per allocation attempt. Rows
// are never mutated after insert. The partial unique index over
// (tenant_id, task_id, user_id) filtered to SUCCESS rows is the single
// source of truth for payout idempotency.
type RewardPayout struct {
	PayoutID      string         `gorm:"column:payout_id;primaryKey" json:"payout_id"`
	TenantID      string         `gorm:"column:tenant_id;not null;uniqueIndex:ux_payout_success,priority:1,where:outcome = 'SUCCESS'" json:"tenant_id"`
	TaskID        string         `gorm:"column:task_id;not null;uniqueIndex:ux_payout_success,priority:2" json:"task_id"`
	UserID        string         `gorm:"column:user_id;not null;uniqueIndex:ux_payout_success,priority:3" json:"user_id"`
	RewardID      string         `gorm:"column:reward_id;index;not null" json:"reward_id"`
	RewardItemID  *string        `gorm:"column:reward_item_id" json:"reward_item_id,omitempty"`
	Outcome       PayoutOutcome  `gorm:"column:outcome;not null" json:"outcome"`
	FailureReason string         `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (RewardPayout) TableName() string { return "reward_payouts" }

// BatchResult is the aggregated outcome of one payout batch. Requested is
// always the sum of the other three counters plus any idempotent no-ops
// absorbed during the run.
type BatchResult struct {
	Requested         int `json:"requested"`
	Succeeded         int `json:"succeeded"`
	Failed            int `json:"failed"`
	InsufficientStock int `json:"insufficient_stock"`
}

// RewardStatusView is the live counter snapshot returned by GetRewardStatus.
type RewardStatusView struct {
	RewardID       string `json:"reward_id"`
	TotalQuantity  int64  `json:"total_quantity"`
	IssuedQuantity int64  `json:"issued_quantity"`
	AvailableCount int64  `json:"available_count"`
}

// ImportItem is one row of an import request.
type ImportItem struct {
	ItemValue    string  `json:"item_value"`
	TargetUserID *string `json:"target_user_id,omitempty"`
	TargetPhone  *string `json:"target_phone,omitempty"`
}
