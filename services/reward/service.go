package reward

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"acthub-rewardengine/pkg/db/option"
	"acthub-rewardengine/pkg/errutil"
	"acthub-rewardengine/pkg/repository"
	"acthub-rewardengine/pkg/sequence"
)

// Service is the administrative and payout surface of the engine. Reward
// and item rows are created here; their status and counters are mutated
// only by the allocation engine and the explicit admin corrections below.
type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	seq    sequence.Generator
	engine *Engine
	pool   *ItemPool

	rewards repository.Repository[Reward]
	items   repository.Repository[RewardItem]
	payouts repository.Repository[RewardPayout]
}

type ServiceParams struct {
	fx.In

	DB     *gorm.DB
	Node   *snowflake.Node
	Seq    sequence.Generator `optional:"true"`
	Engine *Engine
	Pool   *ItemPool
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		seq:    p.Seq,
		engine: p.Engine,
		pool:   p.Pool,

		rewards: repository.ProvideStore[Reward](p.DB),
		items:   repository.ProvideStore[RewardItem](p.DB),
		payouts: repository.ProvideStore[RewardPayout](p.DB),
	}
}

type CreateRewardRequest struct {
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	TotalQuantity int64      `json:"total_quantity"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
}

func (s *Service) CreateReward(ctx context.Context, tenantID string, req CreateRewardRequest) (*Reward, error) {
	if tenantID == "" || req.Name == "" || req.Type == "" {
		return nil, errutil.BadRequest("tenant_id, name and type are required", nil)
	}
	if req.TotalQuantity < 0 {
		return nil, errutil.BadRequest("total_quantity must not be negative", nil)
	}

	rw := &Reward{
		RewardID:      s.node.Generate().String(),
		TenantID:      tenantID,
		Name:          req.Name,
		Type:          req.Type,
		TotalQuantity: req.TotalQuantity,
		Status:        RewardActive,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
	}
	if err := s.rewards.Create(ctx, rw); err != nil {
		return nil, errutil.Internal("failed to create reward", err)
	}
	return rw, nil
}

func (s *Service) ListRewards(ctx context.Context, tenantID string) ([]*Reward, error) {
	if tenantID == "" {
		return nil, errutil.BadRequest("tenant_id required", nil)
	}
	return s.rewards.Find(ctx, &Reward{TenantID: tenantID})
}

func (s *Service) getReward(ctx context.Context, tenantID, rewardID string) (*Reward, error) {
	rw, err := s.rewards.FindOne(ctx, &Reward{TenantID: tenantID, RewardID: rewardID})
	if err != nil {
		return nil, errutil.Internal("failed to load reward", err)
	}
	if rw == nil {
		return nil, errutil.NotFound("reward not found", nil)
	}
	return rw, nil
}

// GetRewardStatus returns the live counter snapshot: catalog counters plus
// the current AVAILABLE instance count.
func (s *Service) GetRewardStatus(ctx context.Context, tenantID, rewardID string) (*RewardStatusView, error) {
	rw, err := s.getReward(ctx, tenantID, rewardID)
	if err != nil {
		return nil, err
	}

	available, err := s.items.Count(ctx, &RewardItem{
		TenantID: tenantID,
		RewardID: rewardID,
		Status:   ItemAvailable,
	})
	if err != nil {
		return nil, errutil.Internal("failed to count available items", err)
	}

	return &RewardStatusView{
		RewardID:       rw.RewardID,
		TotalQuantity:  rw.TotalQuantity,
		IssuedQuantity: rw.IssuedQuantity,
		AvailableCount: available,
	}, nil
}

// ImportRewardItems inserts new instances under the reward. Item values
// already present for the reward are skipped, not errors; the returned
// count covers only actually inserted rows. total_quantity is untouched:
// restocking the catalog counter is AdjustStock's job alone.
func (s *Service) ImportRewardItems(ctx context.Context, tenantID, rewardID string, items []ImportItem) (int, error) {
	if len(items) == 0 {
		return 0, errutil.BadRequest("items are required", nil)
	}
	if _, err := s.getReward(ctx, tenantID, rewardID); err != nil {
		return 0, err
	}

	inserted := 0
	for _, it := range items {
		if it.ItemValue == "" {
			continue
		}

		row := &RewardItem{
			ItemID:       s.node.Generate().String(),
			TenantID:     tenantID,
			RewardID:     rewardID,
			ItemValue:    it.ItemValue,
			Status:       ItemAvailable,
			TargetUserID: it.TargetUserID,
			TargetPhone:  it.TargetPhone,
		}
		if err := s.items.Create(ctx, row); err != nil {
			if isDuplicateKey(err) {
				zap.L().Debug("skipping duplicate item value",
					zap.String("reward_id", rewardID), zap.String("item_value", it.ItemValue))
				continue
			}
			return inserted, errutil.Internal("failed to insert reward item", err)
		}
		inserted++
	}

	return inserted, nil
}

// GenerateRewardItems mints count fresh item values through the sequence
// generator and imports them.
func (s *Service) GenerateRewardItems(ctx context.Context, tenantID, rewardID string, count int) (int, error) {
	if count <= 0 {
		return 0, errutil.BadRequest("count must be positive", nil)
	}
	if s.seq == nil {
		return 0, errutil.New(errutil.StatusNotImplemented, "no code generator configured")
	}
	rw, err := s.getReward(ctx, tenantID, rewardID)
	if err != nil {
		return 0, err
	}

	items := make([]ImportItem, 0, count)
	for i := 0; i < count; i++ {
		code, err := s.seq.NextRewardItemCode(ctx, tenantID, rw.Type)
		if err != nil {
			return 0, errutil.Internal("failed to generate item value", err)
		}
		items = append(items, ImportItem{ItemValue: code})
	}

	return s.ImportRewardItems(ctx, tenantID, rewardID, items)
}

// ItemView is the redacted listing row; raw instance values never leave the
// engine through list endpoints.
type ItemView struct {
	ItemID       string     `json:"item_id"`
	RewardID     string     `json:"reward_id"`
	ItemValue    string     `json:"item_value"` // masked
	Status       ItemStatus `json:"status"`
	TargetUserID string     `json:"target_user_id,omitempty"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
}

func (s *Service) ListRewardItems(ctx context.Context, tenantID, rewardID string, status ItemStatus, limit int) ([]ItemView, error) {
	if _, err := s.getReward(ctx, tenantID, rewardID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	opts := []option.QueryOption{option.WithLimit(limit)}
	if status != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field: "status", Operator: option.EQ, Value: status,
		}))
	}

	items, err := s.items.Find(ctx, &RewardItem{TenantID: tenantID, RewardID: rewardID}, opts...)
	if err != nil {
		return nil, errutil.Internal("failed to list reward items", err)
	}

	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, ItemView{
			ItemID:       it.ItemID,
			RewardID:     it.RewardID,
			ItemValue:    maskValue(it.ItemValue),
			Status:       it.Status,
			TargetUserID: valueOrEmpty(it.TargetUserID),
			AssignedTo:   valueOrEmpty(it.AssignedTo),
			AssignedAt:   it.AssignedAt,
		})
	}
	return views, nil
}

// AdjustStock is the explicit restock operation and the only writer of
// total_quantity. The delta is applied atomically and rejected when the new
// total would undercut issued_quantity or drop below zero.
func (s *Service) AdjustStock(ctx context.Context, tenantID, rewardID string, delta int64) (int64, error) {
	if delta == 0 {
		return 0, errutil.BadRequest("delta must not be zero", nil)
	}

	res := s.db.WithContext(ctx).
		Model(&Reward{}).
		Where("tenant_id = ? AND reward_id = ? AND total_quantity + ? >= issued_quantity AND total_quantity + ? >= 0",
			tenantID, rewardID, delta, delta).
		Updates(map[string]any{
			"total_quantity": gorm.Expr("total_quantity + ?", delta),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return 0, errutil.Internal("failed to adjust stock", res.Error)
	}
	if res.RowsAffected == 0 {
		rw, err := s.getReward(ctx, tenantID, rewardID)
		if err != nil {
			return 0, err
		}
		return rw.TotalQuantity, errutil.Conflict("adjustment would violate issued_quantity <= total_quantity", nil)
	}

	rw, err := s.getReward(ctx, tenantID, rewardID)
	if err != nil {
		return 0, err
	}
	return rw.TotalQuantity, nil
}

// VoidRewardItem marks an AVAILABLE item unusable (admin correction).
func (s *Service) VoidRewardItem(ctx context.Context, tenantID, itemID string) error {
	if err := s.pool.Void(ctx, s.db, tenantID, itemID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errutil.NotFound("item not found or not voidable", err)
		}
		return errutil.Internal("failed to void item", err)
	}
	return nil
}

// ReleaseRewardItem is the explicit compensating transition back to
// AVAILABLE for an item whose assignment has to be undone.
func (s *Service) ReleaseRewardItem(ctx context.Context, tenantID, itemID string) error {
	if err := s.pool.Release(ctx, s.db, tenantID, itemID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errutil.NotFound("item not found or not assigned", err)
		}
		return errutil.Internal("failed to release item", err)
	}
	return nil
}

// TriggerPayout executes one payout batch. See Engine.TriggerPayout.
func (s *Service) TriggerPayout(ctx context.Context, tenantID, taskID, rewardID string, scope Scope) (*BatchResult, error) {
	return s.engine.TriggerPayout(ctx, tenantID, taskID, rewardID, scope)
}

// ListPayouts returns the ledger rows for one task, newest first.
func (s *Service) ListPayouts(ctx context.Context, tenantID, taskID string) ([]*RewardPayout, error) {
	if tenantID == "" || taskID == "" {
		return nil, errutil.BadRequest("tenant_id and task_id required", nil)
	}
	return s.payouts.Find(ctx, &RewardPayout{TenantID: tenantID, TaskID: taskID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}))
}
