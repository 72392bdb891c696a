package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordReset_GenerateToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	hexRegex := regexp.MustCompile(`^[0-9a-f]{64}$`)
	assert.True(t, hexRegex.MatchString(token), "token 应为 32 字节的十六进制串")

	// 两次生成应不同
	token2, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestPasswordReset_IsValid(t *testing.T) {
	now := time.Now()

	// 未使用且未过期
	p := &PasswordReset{Used: false, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, p.IsExpired())
	assert.True(t, p.IsValid())

	// 已使用
	p2 := &PasswordReset{Used: true, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, p2.IsValid())

	// 已过期
	p3 := &PasswordReset{Used: false, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, p3.IsExpired())
	assert.False(t, p3.IsValid())
}
