package reward

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"acthub-rewardengine/pkg/errutil"
	"acthub-rewardengine/services/participation"
)

// Engine orchestrates one payout batch: resolve recipients, reserve one
// instance per recipient, and record the outcome in the ledger. Batch state
// never leaves the engine; callers only ever see the aggregated BatchResult.
type Engine struct {
	db     *gorm.DB
	node   *snowflake.Node
	pool   *ItemPool
	source participation.Source
	audit  AuditSink

	resolver *Resolver

	// lockTimeout bounds every per-recipient transaction, reservation
	// included. On expiry the transaction rolls back and the recipient is
	// counted as failed, never deadlocked.
	lockTimeout time.Duration
}

type EngineParams struct {
	DB          *gorm.DB
	Node        *snowflake.Node
	Pool        *ItemPool
	Source      participation.Source
	Audit       AuditSink
	LockTimeout time.Duration
}

func NewEngine(p EngineParams) *Engine {
	if p.LockTimeout <= 0 {
		p.LockTimeout = 5 * time.Second
	}
	audit := p.Audit
	if audit == nil {
		audit = NopAuditSink{}
	}
	return &Engine{
		db:          p.DB,
		node:        p.Node,
		pool:        p.Pool,
		source:      p.Source,
		audit:       audit,
		resolver:    NewResolver(p.DB, p.Source),
		lockTimeout: p.LockTimeout,
	}
}

// TriggerPayout executes one payout batch for (taskID, rewardID, scope).
// Validation failures abort the whole call before any reservation; every
// other condition is absorbed into the returned counts. Safe to re-invoke:
// previously paid users are filtered out by the resolver and, when racing a
// concurrent batch, rejected by the ledger's unique constraint.
func (e *Engine) TriggerPayout(ctx context.Context, tenantID, taskID, rewardID string, scope Scope) (*BatchResult, error) {
	if !scope.Valid() {
		return nil, errutil.BadRequest("unknown payout scope", nil)
	}

	var rw Reward
	if err := e.db.WithContext(ctx).
		Where("tenant_id = ? AND reward_id = ?", tenantID, rewardID).
		First(&rw).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errutil.NotFound("reward not found", err)
		}
		return nil, errutil.Internal("failed to load reward", err)
	}
	if !rw.Issuable(time.Now()) {
		return nil, errutil.UnprocessableEntity("reward is not issuable", nil)
	}

	exists, err := e.source.TaskExists(ctx, tenantID, taskID)
	if err != nil {
		return nil, errutil.Internal("failed to check task", err)
	}
	if !exists {
		return nil, errutil.NotFound("task not found", nil)
	}

	recipients, err := e.resolver.Resolve(ctx, tenantID, taskID, scope)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Requested: len(recipients)}
	if len(recipients) == 0 {
		return result, nil
	}

	zapLog := zap.L().With(
		zap.String("tenant_id", tenantID),
		zap.String("task_id", taskID),
		zap.String("reward_id", rewardID),
		zap.String("scope", string(scope)),
	)

	for i, userID := range recipients {
		err := e.payOne(ctx, tenantID, taskID, rewardID, userID)
		switch {
		case err == nil:
			result.Succeeded++

		case err == ErrAlreadyPaid:
			// Another batch won the race for this user. Not a success of
			// this batch, not a failure either.
			zapLog.Debug("recipient already paid by another batch", zap.String("user_id", userID))

		case err == ErrInsufficientStock:
			// Stock will not replenish mid-batch: everyone from here on is
			// out of stock too.
			result.InsufficientStock = len(recipients) - i
			zapLog.Info("reward stock exhausted mid-batch",
				zap.Int("remaining_recipients", result.InsufficientStock))
			e.notify(ctx, tenantID, taskID, rewardID, scope, result)
			return result, nil

		default:
			result.Failed++
			zapLog.Warn("payout failed for recipient", zap.String("user_id", userID), zap.Error(err))
			e.recordFailure(tenantID, taskID, rewardID, userID, err)
		}
	}

	e.notify(ctx, tenantID, taskID, rewardID, scope, result)
	return result, nil
}

// payOne runs the per-recipient unit of work: reserve+assign an instance,
// bump the issued counter, and append the SUCCESS ledger row, all in one
// transaction bounded by the lock timeout. Any error rolls the whole unit
// back, reservation included.
func (e *Engine) payOne(parent context.Context, tenantID, taskID, rewardID, userID string) error {
	ctx, cancel := context.WithTimeout(parent, e.lockTimeout)
	defer cancel()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := e.pool.ReserveOne(ctx, tx, tenantID, rewardID, userID)
		if err != nil {
			return err
		}

		// Atomic increment guarded against the total; never read-then-write.
		res := tx.Model(&Reward{}).
			Where("tenant_id = ? AND reward_id = ? AND issued_quantity < total_quantity", tenantID, rewardID).
			Updates(map[string]any{
				"issued_quantity": gorm.Expr("issued_quantity + ?", 1),
				"updated_at":      time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientStock
		}

		payout := &RewardPayout{
			PayoutID:     e.node.Generate().String(),
			TenantID:     tenantID,
			TaskID:       taskID,
			UserID:       userID,
			RewardID:     rewardID,
			RewardItemID: &item.ItemID,
			Outcome:      OutcomeSuccess,
		}
		if err := tx.Create(payout).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrAlreadyPaid
			}
			return err
		}

		return nil
	})

	switch {
	case err == nil, err == ErrAlreadyPaid, err == ErrInsufficientStock:
		return err
	case isLockTimeout(err):
		return ErrConcurrencyConflict
	default:
		return err
	}
}

// recordFailure appends a best-effort FAILED ledger row outside the payout
// transaction. FAILED rows are not covered by the idempotency index.
func (e *Engine) recordFailure(tenantID, taskID, rewardID, userID string, cause error) {
	payout := &RewardPayout{
		PayoutID:      e.node.Generate().String(),
		TenantID:      tenantID,
		TaskID:        taskID,
		UserID:        userID,
		RewardID:      rewardID,
		Outcome:       OutcomeFailed,
		FailureReason: cause.Error(),
	}
	if err := e.db.Create(payout).Error; err != nil {
		zap.L().Warn("failed to record FAILED payout row", zap.Error(err))
	}
}

// notify hands the aggregated result to the audit sink after all payout
// transactions have committed. Delivery failure never affects the result.
func (e *Engine) notify(ctx context.Context, tenantID, taskID, rewardID string, scope Scope, result *BatchResult) {
	e.audit.NotifyBatchResult(ctx, PayoutEventPayload{
		TenantID:          tenantID,
		TaskID:            taskID,
		RewardID:          rewardID,
		Scope:             string(scope),
		Requested:         result.Requested,
		Succeeded:         result.Succeeded,
		Failed:            result.Failed,
		InsufficientStock: result.InsufficientStock,
		CompletedAt:       time.Now(),
	})
}
