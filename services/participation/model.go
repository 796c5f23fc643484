package participation

import "time"

// The tables in this package are owned by the task/participation service.
// The engine only ever reads them; rows are written by that collaborator.

type TaskStatus string

var (
	TaskOpen     TaskStatus = "open"
	TaskClosed   TaskStatus = "closed"
	TaskArchived TaskStatus = "archived"
)

type ParticipationStatus string

var (
	ParticipationPending  ParticipationStatus = "pending"
	ParticipationApproved ParticipationStatus = "approved"
	ParticipationRejected ParticipationStatus = "rejected"
)

// Task is a participation task as recorded by the collaborator service.
type Task struct {
	TaskID    string     `gorm:"column:task_id;primaryKey"`
	TenantID  string     `gorm:"column:tenant_id;index;not null"`
	Title     string     `gorm:"column:title"`
	Status    TaskStatus `gorm:"column:status;not null;default:'open'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Task) TableName() string { return "tasks" }

// Participation is one user's reviewed entry for a task.
type Participation struct {
	ParticipationID string              `gorm:"column:participation_id;primaryKey"`
	TenantID        string              `gorm:"column:tenant_id;index;not null"`
	TaskID          string              `gorm:"column:task_id;index;not null"`
	UserID          string              `gorm:"column:user_id;index;not null"`
	Status          ParticipationStatus `gorm:"column:status;not null;default:'pending'"`
	ReviewedAt      *time.Time          `gorm:"column:reviewed_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Participation) TableName() string { return "participations" }

// TaskTarget pre-designates a user for a targeted payout batch.
type TaskTarget struct {
	TargetID  string    `gorm:"column:target_id;primaryKey"`
	TenantID  string    `gorm:"column:tenant_id;index;not null"`
	TaskID    string    `gorm:"column:task_id;index;not null"`
	UserID    string    `gorm:"column:user_id;not null"`
	Phone     string    `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TaskTarget) TableName() string { return "task_targets" }
