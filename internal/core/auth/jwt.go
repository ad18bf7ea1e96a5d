package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 签名不符 / 格式非法 / 载荷缺失统一归一为该错误
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// JWTer 签发与校验会话令牌。
// 令牌本身不带过期时间：失效靠从用户的令牌集合里删除（见 service 层），
// 泄漏的令牌在显式登出前一直有效，这是有意的取舍。
type JWTer struct {
	Secret []byte
	Issuer string
}

// Issue 产生只携带用户 ID 的 HS256 签名令牌
func (j *JWTer) Issue(uid string) (string, error) {
	claims := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: j.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Parse 校验签名并取出用户 ID；任何失败路径都返回 ErrInvalidToken
func (j *JWTer) Parse(tokenStr string) (string, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer))

	if err != nil {
		return "", ErrInvalidToken
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.UID != "" {
		return c.UID, nil
	}
	return "", ErrInvalidToken
}
