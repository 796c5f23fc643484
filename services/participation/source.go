package participation

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"acthub-rewardengine/pkg/db/option"
	"acthub-rewardengine/pkg/repository"
)

// Source is the eligibility input surface the allocation engine consumes.
// Implementations must be read-only and side-effect free.
type Source interface {
	TaskExists(ctx context.Context, tenantID, taskID string) (bool, error)
	ListApprovedParticipants(ctx context.Context, tenantID, taskID string) ([]string, error)
	ListTargetUsers(ctx context.Context, tenantID, taskID string) ([]string, error)
}

type GormSource struct {
	db *gorm.DB

	tasks          repository.Repository[Task]
	participations repository.Repository[Participation]
	targets        repository.Repository[TaskTarget]
}

type SourceParams struct {
	fx.In
	DB *gorm.DB
}

func NewSource(p SourceParams) *GormSource {
	return &GormSource{
		db: p.DB,

		tasks:          repository.ProvideStore[Task](p.DB),
		participations: repository.ProvideStore[Participation](p.DB),
		targets:        repository.ProvideStore[TaskTarget](p.DB),
	}
}

func (s *GormSource) TaskExists(ctx context.Context, tenantID, taskID string) (bool, error) {
	count, err := s.tasks.Count(ctx, &Task{TenantID: tenantID, TaskID: taskID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListApprovedParticipants returns users with an approved participation for
// the task, in review order.
func (s *GormSource) ListApprovedParticipants(ctx context.Context, tenantID, taskID string) ([]string, error) {
	entries, err := s.participations.Find(ctx, &Participation{
		TenantID: tenantID,
		TaskID:   taskID,
		Status:   ParticipationApproved,
	}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "asc",
		Allow:   map[string]bool{"created_at": true},
	}))
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(entries))
	for _, e := range entries {
		users = append(users, e.UserID)
	}
	return users, nil
}

// ListTargetUsers returns the pre-designated target list for the task.
func (s *GormSource) ListTargetUsers(ctx context.Context, tenantID, taskID string) ([]string, error) {
	entries, err := s.targets.Find(ctx, &TaskTarget{
		TenantID: tenantID,
		TaskID:   taskID,
	}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "asc",
		Allow:   map[string]bool{"created_at": true},
	}))
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(entries))
	for _, e := range entries {
		users = append(users, e.UserID)
	}
	return users, nil
}
