package reward

import (
	"context"

	"gorm.io/gorm"

	"acthub-rewardengine/pkg/errutil"
	"acthub-rewardengine/services/participation"
)

// Resolver turns a task and scope into the deduplicated, not-yet-paid
// recipient list for one payout batch. The returned order is the source's
// natural order with later duplicates dropped; the engine processes
// recipients in exactly this order. No side effects.
type Resolver struct {
	db     *gorm.DB
	source participation.Source
}

func NewResolver(db *gorm.DB, source participation.Source) *Resolver {
	return &Resolver{db: db, source: source}
}

func (r *Resolver) Resolve(ctx context.Context, tenantID, taskID string, scope Scope) ([]string, error) {
	var users []string
	var err error

	switch scope {
	case ScopeApprovedUsers:
		users, err = r.source.ListApprovedParticipants(ctx, tenantID, taskID)
	case ScopeTargetedUsers:
		users, err = r.source.ListTargetUsers(ctx, tenantID, taskID)
	default:
		return nil, errutil.BadRequest("unknown payout scope", nil)
	}
	if err != nil {
		return nil, err
	}

	users = dedupe(users)
	if len(users) == 0 {
		return nil, nil
	}

	// Drop users already holding a SUCCESS ledger row for this task. This
	// filter is what makes re-invoking a batch idempotent for prior runs;
	// races against concurrent batches are caught by the ledger's unique
	// constraint, not here.
	var paid []string
	if err := r.db.WithContext(ctx).
		Model(&RewardPayout{}).
		Where("tenant_id = ? AND task_id = ? AND outcome = ? AND user_id IN ?",
			tenantID, taskID, OutcomeSuccess, users).
		Pluck("user_id", &paid).Error; err != nil {
		return nil, err
	}

	if len(paid) == 0 {
		return users, nil
	}

	paidSet := make(map[string]struct{}, len(paid))
	for _, u := range paid {
		paidSet[u] = struct{}{}
	}

	unpaid := users[:0]
	for _, u := range users {
		if _, ok := paidSet[u]; !ok {
			unpaid = append(unpaid, u)
		}
	}
	return unpaid, nil
}

func dedupe(users []string) []string {
	seen := make(map[string]struct{}, len(users))
	out := users[:0]
	for _, u := range users {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
