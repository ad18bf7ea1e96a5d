package domain

import (
	"context"
	"time"
)

// Task 待办事项，owner 在创建时取自当前登录身份，客户端不可指定。
type Task struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	OwnerID     string    `gorm:"size:32;not null;index" json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Task) TableName() string { return "tasks" }

// TaskQuery 列表查询条件。OrderBy 必须是已经过白名单映射的列名
// （见 service.TaskService），仓储层不再二次解析。
type TaskQuery struct {
	Completed *bool
	OrderBy   string
	Desc      bool
	Limit     int // <=0 表示不限
	Skip      int // <=0 表示不跳
}

// TaskRepository 的每个读写都带 ownerID 条件，所有权约束落在查询本身。
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	FindOwned(ctx context.Context, ownerID, id string) (*Task, error)
	ListOwned(ctx context.Context, ownerID string, q TaskQuery) ([]Task, error)
	Update(ctx context.Context, t *Task) error
	DeleteOwned(ctx context.Context, ownerID, id string) (bool, error)
}
