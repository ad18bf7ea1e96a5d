package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"task-manager/internal/domain"
	"task-manager/pkg/utils"
)

// TaskService 所有权限定的任务查询与增删改。
// 每条 SQL 都带 owner 条件，属于别人的任务与不存在的任务
// 对调用方完全一致地表现为 NotFound。
type TaskService struct {
	tasks domain.TaskRepository
}

func NewTaskService(tasks domain.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

// 列表排序字段白名单：请求字段名 → 列名。不在表里的字段直接忽略，
// 列名永远不从请求原文拼进 SQL。
var taskSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"description": "description",
	"completed":   "completed",
}

// ListParams 未经解析的请求参数。数字段是字符串：
// 解析失败按"无限制"处理而不是报错。
type ListParams struct {
	Completed string // "", "true", "false"
	SortBy    string // "field:asc" / "field:desc"
	Limit     string
	Skip      string
}

// BuildQuery 把宽松的请求参数收敛成仓储能执行的查询条件
func BuildQuery(p ListParams) domain.TaskQuery {
	var q domain.TaskQuery

	if p.Completed != "" {
		completed := p.Completed == "true"
		q.Completed = &completed
	}

	if p.SortBy != "" {
		parts := strings.SplitN(p.SortBy, ":", 2)
		if col, ok := taskSortColumns[parts[0]]; ok {
			q.OrderBy = col
			q.Desc = len(parts) == 2 && parts[1] == "desc"
		}
	}

	// 非数字 / 负数 → 不设上限、不跳过
	if n, err := strconv.Atoi(p.Limit); err == nil && n > 0 {
		q.Limit = n
	}
	if n, err := strconv.Atoi(p.Skip); err == nil && n > 0 {
		q.Skip = n
	}
	return q
}

// ListOwned 只返回 ownerID 名下的任务；没有匹配时给空列表而不是错误
func (s *TaskService) ListOwned(ctx context.Context, ownerID string, p ListParams) ([]domain.Task, error) {
	tasks, err := s.tasks.ListOwned(ctx, ownerID, BuildQuery(p))
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %v", ErrInternal, err)
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, ownerID, description string, completed bool) (*domain.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	t := &domain.Task{
		ID:          utils.NewID(),
		Description: description,
		Completed:   completed,
		OwnerID:     ownerID, // 永远取自登录身份，不收客户端的
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("%w: create task: %v", ErrInternal, err)
	}
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	t, err := s.tasks.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: find task: %v", ErrInternal, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: task", ErrNotFound)
	}
	return t, nil
}

// 任务可改字段白名单
var taskMutableFields = map[string]struct{}{
	"description": {}, "completed": {},
}

// Update 白名单之外的字段在任何持久化动作之前就拒绝
func (s *TaskService) Update(ctx context.Context, ownerID, id string, fields map[string]any) (*domain.Task, error) {
	for k := range fields {
		if _, ok := taskMutableFields[k]; !ok {
			return nil, fmt.Errorf("%w: invalid updates", ErrValidation)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no updates given", ErrValidation)
	}

	t, err := s.tasks.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: find task: %v", ErrInternal, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: task", ErrNotFound)
	}

	if v, ok := fields["description"]; ok {
		desc, ok := v.(string)
		desc = strings.TrimSpace(desc)
		if !ok || desc == "" {
			return nil, fmt.Errorf("%w: description is required", ErrValidation)
		}
		t.Description = desc
	}
	if v, ok := fields["completed"]; ok {
		completed, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: completed must be a boolean", ErrValidation)
		}
		t.Completed = completed
	}

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("%w: update task: %v", ErrInternal, err)
	}
	return t, nil
}

// Delete 返回被删的任务；查不到（含不属于自己）→ NotFound
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	t, err := s.tasks.FindOwned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: find task: %v", ErrInternal, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: task", ErrNotFound)
	}
	ok, err := s.tasks.DeleteOwned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: delete task: %v", ErrInternal, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task", ErrNotFound)
	}
	return t, nil
}
