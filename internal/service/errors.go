// Package service 承载账户/会话与任务两块业务逻辑。
// 对外错误只有四类哨兵，传输层据此映射 HTTP 状态码，
// 存储细节一律不外泄。
package service

import "errors"

var (
	// ErrValidation 字段非法 / 不允许的字段 / 唯一键冲突
	ErrValidation = errors.New("validation error")
	// ErrAuthentication 凭证错误或令牌无效；各种失败原因对调用方刻意不可区分
	ErrAuthentication = errors.New("authentication error")
	// ErrNotFound 资源不存在，或存在但不属于调用者（同样不可区分）
	ErrNotFound = errors.New("not found")
	// ErrInternal 存储或下游协作方故障
	ErrInternal = errors.New("internal error")
)
