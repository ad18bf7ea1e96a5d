package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"task-manager/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// AppendToken 单条 INSERT，并发登录各加各的行，互不覆盖
func (r *UserRepo) AppendToken(ctx context.Context, userID, token string) error {
	return r.db.WithContext(ctx).Create(&domain.SessionToken{UserID: userID, Token: token}).Error
}

// RemoveToken 只删给定的那一个令牌；不存在时删 0 行，天然幂等
func (r *UserRepo) RemoveToken(ctx context.Context, userID, token string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&domain.SessionToken{}).Error
}

func (r *UserRepo) ClearTokens(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.SessionToken{}).Error
}

func (r *UserRepo) HasToken(ctx context.Context, userID, token string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.SessionToken{}).
		Where("user_id = ? AND token = ?", userID, token).
		Count(&n).Error
	return n > 0, err
}

// DeleteCascade 任务 → 令牌 → 用户，一个事务内完成。
// 级联任一步出错即回滚，用户记录保持原样以便重试。
func (r *UserRepo) DeleteCascade(ctx context.Context, userID string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", userID).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&domain.SessionToken{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", userID).Delete(&domain.User{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// IsDupKey 判别唯一键冲突；不依赖 gorm.ErrDuplicatedKey，避免驱动/版本差异
func IsDupKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
