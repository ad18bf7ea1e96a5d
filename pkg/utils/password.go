package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword 生成带盐 bcrypt 摘要（同一明文每次结果不同，均可校验通过）
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword 校验明文与摘要；摘要格式非法一律返回 false，不抛错
func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
