package session

import (
	"context"

	"github.com/gin-gonic/gin"
)

const (
	tokenName   = "token"
	maxTokenLen = 70
)

type tokenKey struct{}

// TokenSessionID はリクエストヘッダー（またはクッキー）の token をセッションIDとして使うミドルウェアです。
// sessions.Sessions より前に登録してください。
func TokenSessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(tokenName)
		if token == "" {
			token, _ = c.Cookie(tokenName)
		}
		if ValidID(token) {
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), tokenKey{}, token))
		}
		c.Next()
	}
}

// TokenFromContext は TokenSessionID が設定したトークンを返します。
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// ValidID は英数字のみで70文字以下の文字列かどうかを返します。
func ValidID(id string) bool {
	if id == "" || len(id) > maxTokenLen {
		return false
	}
	for _, r := range id {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
			return false
		}
	}
	return true
}
