package auth

import "github.com/gin-gonic/gin"

// LoadUser はセッション上の利用者情報を更新し、ContextUserKey に設定するミドルウェアです。
// 未ログインの場合は何もしません。
func (m *Manager) LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.CurrentUser(c)
		if err != nil {
			m.logger.Warn().Err(err).Msg("failed to refresh session user")
		}
		if user != nil {
			c.Set(ContextUserKey, *user)
		}
		c.Next()
	}
}

// UserFromContext は LoadUser が設定した利用者情報を返します。
func UserFromContext(c *gin.Context) (SessionUser, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return SessionUser{}, false
	}
	u, ok := v.(SessionUser)
	return u, ok
}
