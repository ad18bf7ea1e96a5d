package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"task-manager/internal/domain"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// FindOwned 查询始终同时限定 id 和 owner_id；
// 别人的任务和不存在的任务在这里同样是查不到
func (r *TaskRepo) FindOwned(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).First(&t, "id = ? AND owner_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &t, err
}

func (r *TaskRepo) ListOwned(ctx context.Context, ownerID string, q domain.TaskQuery) ([]domain.Task, error) {
	tx := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if q.Completed != nil {
		tx = tx.Where("completed = ?", *q.Completed)
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		tx = tx.Order(q.OrderBy + " " + dir)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Skip > 0 {
		tx = tx.Offset(q.Skip)
	}
	tasks := make([]domain.Task, 0)
	err := tx.Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TaskRepo) DeleteOwned(ctx context.Context, ownerID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.Task{})
	return res.RowsAffected > 0, res.Error
}
