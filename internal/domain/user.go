package domain

import (
	"context"
	"time"
)

// User 账户实体。PasswordHash / Tokens / Avatar 永不出现在响应 JSON 里，
// 序列化隐藏即表现层契约（配合 domain 测试保证）。
type User struct {
	ID           string    `gorm:"primaryKey;size:32" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Age          int       `gorm:"not null;default:0" json:"age"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Avatar       []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Tokens []SessionToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string { return "users" }

// SessionToken activeTokens 的一行。一行即一个在线会话：
// 追加 = INSERT、撤销 = DELETE，都是存储层单语句原子操作，
// 并发登录/登出不会互相覆盖（不做读改写）。
type SessionToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"size:32;not null;index:idx_user_token,priority:1"`
	Token     string    `gorm:"size:512;not null;index:idx_user_token,priority:2"`
	CreatedAt time.Time
}

func (SessionToken) TableName() string { return "session_tokens" }

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error

	// 会话令牌集合操作，均为单语句原子写
	AppendToken(ctx context.Context, userID, token string) error
	RemoveToken(ctx context.Context, userID, token string) error
	ClearTokens(ctx context.Context, userID string) error
	HasToken(ctx context.Context, userID, token string) (bool, error)

	// DeleteCascade 在同一事务里删任务、删令牌、删用户；
	// 任一步失败整体回滚，用户保持可重试。返回是否真的删到了用户。
	DeleteCascade(ctx context.Context, userID string) (bool, error)
}
