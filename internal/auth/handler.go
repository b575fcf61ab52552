package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/gate"
)

const appName = "user"

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Register はユーザー関連のルートを登録します。
func (m *Manager) Register(router gin.IRoutes, routes *gate.Routes) {
	routes.Handle(router, http.MethodPost, "/app/user/login", gate.RouteMeta{App: appName, NoLogin: true}, m.HandleLogin)
	routes.Handle(router, http.MethodGet, "/app/user/logout", gate.RouteMeta{App: appName, NoLogin: true}, m.HandleLogout)
	routes.Handle(router, http.MethodPost, "/app/user/logout", gate.RouteMeta{App: appName, NoLogin: true}, m.HandleLogout)
	routes.Handle(router, http.MethodGet, "/app/user/info", gate.RouteMeta{App: appName}, m.HandleInfo)
}

// HandleLogin は POST /app/user/login のハンドラーです。
func (m *Manager) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code": 1,
			"msg":  "username and password are required",
			"data": []any{},
		})
		return
	}

	ctx := c.Request.Context()
	key := "login:" + c.ClientIP()
	if m.limiter != nil {
		count, err := m.limiter.RateLimited(ctx, key, m.cfg.LoginMaxAttempts, m.cfg.LoginWindow)
		if err != nil {
			m.logger.Error().Err(err).Msg("login rate limiter unavailable")
		} else if count == 0 {
			retryAfter := m.cfg.LoginWindow
			if ttl, err := m.limiter.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = ttl
			}
			// Retry-After は秒数で返す
			c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code": 1,
				"msg":  "too many login attempts, please try again later",
				"data": []any{},
			})
			return
		}
	}

	user, err := m.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": 1,
			"msg":  "invalid username or password",
			"data": []any{},
		})
		return
	}
	if err != nil {
		m.logger.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 1,
			"msg":  "login failed",
			"data": []any{},
		})
		return
	}

	if err := m.Login(c, user); err != nil {
		m.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to start session")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 1,
			"msg":  "failed to start session",
			"data": []any{},
		})
		return
	}
	if m.limiter != nil {
		if err := m.limiter.Reset(ctx, key); err != nil {
			m.logger.Warn().Err(err).Msg("failed to reset login limiter")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "ok",
		"data": NewSessionUser(user, m.now()),
	})
}

// HandleLogout はログアウトしてログイン画面へリダイレクトします。
func (m *Manager) HandleLogout(c *gin.Context) {
	if err := m.Logout(c); err != nil {
		m.logger.Error().Err(err).Msg("logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code": 1,
			"msg":  "logout failed",
			"data": []any{},
		})
		return
	}

	if gate.ExpectsJSON(c.Request) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": []any{}})
		return
	}
	c.Redirect(http.StatusFound, m.loginPath())
}

// HandleInfo は GET /app/user/info のハンドラーです。
func (m *Manager) HandleInfo(c *gin.Context) {
	user, err := m.CurrentUser(c)
	if err != nil {
		m.logger.Warn().Err(err).Msg("using cached session user")
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code": http.StatusUnauthorized,
			"msg":  gate.MessageLoginRequired,
			"data": []any{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": user})
}

func (m *Manager) loginPath() string {
	if m.cfg != nil && m.cfg.LoginPath != "" {
		return m.cfg.LoginPath
	}
	return gate.DefaultLoginPath
}
