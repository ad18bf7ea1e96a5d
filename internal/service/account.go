package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"task-manager/internal/core/auth"
	"task-manager/internal/domain"
	"task-manager/pkg/utils"
)

const minPasswordLen = 7

// Mailer 外部通知协作方，发送失败不影响主流程
type Mailer interface {
	SendWelcome(email, name string) error
	SendCancellation(email, name string) error
}

// AccountService 凭证与会话管理：注册、登录、登出（单个/全部）、注销账户。
// 口令只进不出：入库前经 bcrypt，校验走摘要比对。
type AccountService struct {
	users  domain.UserRepository
	jwter  *auth.JWTer
	mailer Mailer
	dup    func(error) bool
	log    *zap.Logger
}

func NewAccountService(users domain.UserRepository, jwter *auth.JWTer, mailer Mailer, isDupKey func(error) bool, log *zap.Logger) *AccountService {
	if isDupKey == nil {
		isDupKey = func(error) bool { return false }
	}
	return &AccountService{users: users, jwter: jwter, mailer: mailer, dup: isDupKey, log: log}
}

type RegisterInput struct {
	Name     string
	Email    string
	Age      int
	Password string
}

// Register 校验字段 → 哈希口令 → 建档 → 签发并登记令牌。
// 邮箱重复由存储层唯一索引兜底，翻译成 ErrValidation。
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if in.Age < 0 {
		return nil, "", fmt.Errorf("%w: age must be a positive number", ErrValidation)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, "", err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: hash password: %v", ErrInternal, err)
	}

	u := &domain.User{
		ID:           utils.NewID(),
		Name:         name,
		Email:        email,
		Age:          in.Age,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if s.dup(err) {
			return nil, "", fmt.Errorf("%w: email already in use", ErrValidation)
		}
		return nil, "", fmt.Errorf("%w: create user: %v", ErrInternal, err)
	}

	token, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}

	s.fireAndForget("welcome email", func() error { return s.mailer.SendWelcome(u.Email, u.Name) })
	return u, token, nil
}

// Login 查无此人与口令不符返回同一个错误，不向调用方泄露差别。
// 每次登录追加一个新令牌，已有会话不受影响。
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, "", fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, "", fmt.Errorf("%w: unable to login", ErrAuthentication)
	}

	token, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout 只撤销当前请求携带的那一个令牌；令牌已不存在时同样成功
func (s *AccountService) Logout(ctx context.Context, userID, token string) error {
	if err := s.users.RemoveToken(ctx, userID, token); err != nil {
		return fmt.Errorf("%w: remove token: %v", ErrInternal, err)
	}
	return nil
}

// LogoutAll 清空令牌集合，该用户所有会话立即失效
func (s *AccountService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.users.ClearTokens(ctx, userID); err != nil {
		return fmt.Errorf("%w: clear tokens: %v", ErrInternal, err)
	}
	return nil
}

// 用户档案可改字段白名单
var userMutableFields = map[string]struct{}{
	"name": {}, "email": {}, "password": {}, "age": {},
}

// UpdateUser 只能改自己；别人的 id 一律按 NotFound 处理，不暴露存在性。
// 白名单校验在任何持久化动作之前完成。
func (s *AccountService) UpdateUser(ctx context.Context, actingID, targetID string, fields map[string]any) (*domain.User, error) {
	if targetID != actingID {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	for k := range fields {
		if _, ok := userMutableFields[k]; !ok {
			return nil, fmt.Errorf("%w: invalid updates", ErrValidation)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no updates given", ErrValidation)
	}

	u, err := s.users.FindByID(ctx, actingID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	if v, ok := fields["name"]; ok {
		name, ok := v.(string)
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		u.Name = name
	}
	if v, ok := fields["email"]; ok {
		email, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: email address is not valid", ErrValidation)
		}
		email = normalizeEmail(email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}
	if v, ok := fields["age"]; ok {
		age, ok := v.(float64) // JSON 数字解出来是 float64
		if !ok || age < 0 || age != float64(int(age)) {
			return nil, fmt.Errorf("%w: age must be a positive number", ErrValidation)
		}
		u.Age = int(age)
	}
	if v, ok := fields["password"]; ok {
		pw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: password is required", ErrValidation)
		}
		if err := validatePassword(pw); err != nil {
			return nil, err
		}
		hash, err := utils.HashPassword(pw)
		if err != nil {
			return nil, fmt.Errorf("%w: hash password: %v", ErrInternal, err)
		}
		u.PasswordHash = hash
	}

	if err := s.users.Update(ctx, u); err != nil {
		if s.dup(err) {
			return nil, fmt.Errorf("%w: email already in use", ErrValidation)
		}
		return nil, fmt.Errorf("%w: update user: %v", ErrInternal, err)
	}
	return u, nil
}

// DeleteUser 注销账户：级联删任务 → 清令牌 → 删用户，失败则整体不生效。
// 成功后补发告别邮件（尽力而为）。
func (s *AccountService) DeleteUser(ctx context.Context, actingID, targetID string) (*domain.User, error) {
	if targetID != actingID {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	u, err := s.users.FindByID(ctx, actingID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	deleted, err := s.users.DeleteCascade(ctx, actingID)
	if err != nil {
		return nil, fmt.Errorf("%w: delete user: %v", ErrInternal, err)
	}
	if !deleted {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	s.fireAndForget("cancellation email", func() error { return s.mailer.SendCancellation(u.Email, u.Name) })
	return u, nil
}

// SetAvatar 存头像二进制；与核心逻辑无关，仅挂在用户记录上
func (s *AccountService) SetAvatar(ctx context.Context, userID string, data []byte) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	if u == nil {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	u.Avatar = data
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("%w: save avatar: %v", ErrInternal, err)
	}
	return nil
}

func (s *AccountService) ClearAvatar(ctx context.Context, userID string) error {
	return s.SetAvatar(ctx, userID, nil)
}

func (s *AccountService) GetAvatar(ctx context.Context, userID string) ([]byte, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	if u == nil || len(u.Avatar) == 0 {
		return nil, fmt.Errorf("%w: avatar", ErrNotFound)
	}
	return u.Avatar, nil
}

func (s *AccountService) issueToken(ctx context.Context, userID string) (string, error) {
	token, err := s.jwter.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("%w: issue token: %v", ErrInternal, err)
	}
	if err := s.users.AppendToken(ctx, userID, token); err != nil {
		return "", fmt.Errorf("%w: store token: %v", ErrInternal, err)
	}
	return token, nil
}

func (s *AccountService) fireAndForget(what string, fn func() error) {
	if s.mailer == nil {
		return
	}
	go func() {
		if err := fn(); err != nil && s.log != nil {
			s.log.Warn("notify failed", zap.String("kind", what), zap.Error(err))
		}
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email address is not valid", ErrValidation)
	}
	return nil
}

// 口令策略：最短长度，且明文不得包含 "password"（大小写不敏感）
func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if strings.Contains(strings.ToLower(pw), "password") {
		return fmt.Errorf("%w: password can not contain \"password\"", ErrValidation)
	}
	return nil
}
