package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/user-kit/internal/config"
	"github.com/yourusername/user-kit/internal/events"
	"github.com/yourusername/user-kit/internal/jobs"
	"github.com/yourusername/user-kit/internal/logger"
	"github.com/yourusername/user-kit/internal/store"
)

// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合のエラーです。
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore は利用者の参照先です。
type UserStore interface {
	FindUser(ctx context.Context, id int64) (*store.User, error)
	FindUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Limiter はログイン試行回数の制限に使うカウンターです。
type Limiter interface {
	RateLimited(ctx context.Context, key string, limit int, window time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// AuditQueue はログイン記録の投入先です。
type AuditQueue interface {
	EnqueueLoginAudit(ctx context.Context, payload jobs.LoginAuditPayload) error
}

// SessionRotator はログイン時にセッションIDを振り直します。
type SessionRotator func(r *http.Request) error

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	cfg     *config.Config
	users   UserStore
	limiter Limiter
	audit   AuditQueue
	bus     *events.Bus
	logger  logger.Logger
	now     func() time.Time
	rotate  SessionRotator
}

// NewManager は認証マネージャーを作成します。limiter と audit は nil でも構いません。
func NewManager(cfg *config.Config, users UserStore, limiter Limiter, audit AuditQueue, bus *events.Bus, log logger.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		users:   users,
		limiter: limiter,
		audit:   audit,
		bus:     bus,
		logger:  log.Component("auth"),
		now:     time.Now,
	}
}

// RotateSessionsWith はログイン時のセッションID振り直しを設定します。
// 未設定の場合はIDを引き継ぎます。
func (m *Manager) RotateSessionsWith(fn SessionRotator) {
	m.rotate = fn
}

// Authenticate はユーザー名とパスワードを検証します。
func (m *Manager) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	user, err := m.users.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login は利用者をセッションに保存し、user.login を発行してログイン記録を投入します。
func (m *Manager) Login(c *gin.Context, user *store.User) error {
	if user == nil || user.ID == 0 {
		return errors.New("user does not exist")
	}
	ctx := c.Request.Context()
	now := m.now()

	if m.rotate != nil {
		if err := m.rotate(c.Request); err != nil {
			return fmt.Errorf("failed to rotate session: %w", err)
		}
	}

	session := sessions.Default(c)
	session.Set(SessionKeyUser, NewSessionUser(user, now))
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.emit(ctx, events.UserLogin, user)

	if m.audit != nil {
		payload := jobs.LoginAuditPayload{UserID: user.ID, IP: c.ClientIP(), At: now}
		if err := m.audit.EnqueueLoginAudit(ctx, payload); err != nil {
			// ログイン自体は成功しているため記録の失敗はログに残すだけにする
			m.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to record login")
		}
	}
	return nil
}

// Logout は user.logout を発行し、セッションから利用者情報を削除します。
func (m *Manager) Logout(c *gin.Context) error {
	ctx := c.Request.Context()
	session := sessions.Default(c)

	if u, ok := sessionUser(session); ok {
		user, err := m.users.FindUser(ctx, u.ID)
		if err != nil {
			m.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("failed to load user on logout")
		} else if user != nil {
			m.emit(ctx, events.UserLogout, user)
		}
	}

	session.Delete(SessionKeyUser)
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// CurrentUser はセッション上の利用者情報を返します。
// 前回の取得から2秒以上経っている場合はデータベースから取り直し、
// 利用者が削除されていればセッションからも消します。
func (m *Manager) CurrentUser(c *gin.Context) (*SessionUser, error) {
	return m.currentUser(c, false)
}

// RefreshUser はセッション上の利用者情報を強制的に取り直します。
func (m *Manager) RefreshUser(c *gin.Context) (*SessionUser, error) {
	return m.currentUser(c, true)
}

func (m *Manager) currentUser(c *gin.Context, force bool) (*SessionUser, error) {
	session := sessions.Default(c)
	cached, ok := sessionUser(session)
	if !ok {
		return nil, nil
	}

	now := m.now()
	if !force && now.Unix()-cached.RefreshedAt < int64(refreshInterval/time.Second) {
		return &cached, nil
	}

	user, err := m.users.FindUser(c.Request.Context(), cached.ID)
	if err != nil {
		return &cached, fmt.Errorf("failed to refresh session user: %w", err)
	}
	if user == nil {
		session.Delete(SessionKeyUser)
		if err := session.Save(); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		return nil, nil
	}

	fresh := NewSessionUser(user, now)
	session.Set(SessionKeyUser, fresh)
	if err := session.Save(); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &fresh, nil
}

func (m *Manager) emit(ctx context.Context, name string, payload any) {
	if m.bus != nil {
		m.bus.Emit(ctx, name, payload)
	}
}
