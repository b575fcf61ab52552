// Package auth はログイン・ログアウトとセッション上の利用者情報を扱います。
package auth

import (
	"encoding/gob"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/store"
)

const (
	// SessionKeyUser はセッション上の利用者情報のキーです。
	SessionKeyUser = "user"

	// セッション上の利用者情報はこの間隔より短い周期では再取得しない
	refreshInterval = 2 * time.Second
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// SessionUser はセッションに保存する利用者情報です。パスワードは含めません。
type SessionUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Nickname    string `json:"nickname"`
	Avatar      string `json:"avatar"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile"`
	RefreshedAt int64  `json:"-"`
}

func init() {
	gob.Register(SessionUser{})
}

// NewSessionUser はユーザーレコードからセッション用の情報を作成します。
func NewSessionUser(u *store.User, now time.Time) SessionUser {
	return SessionUser{
		ID:          u.ID,
		Username:    u.Username,
		Nickname:    u.Nickname,
		Avatar:      u.Avatar,
		Email:       u.Email,
		Mobile:      u.Mobile,
		RefreshedAt: now.Unix(),
	}
}

func sessionUser(s sessions.Session) (SessionUser, bool) {
	u, ok := s.Get(SessionKeyUser).(SessionUser)
	return u, ok && u.ID != 0
}

// CurrentUserID はセッション上の利用者IDを返します。
func CurrentUserID(c *gin.Context) (int64, bool) {
	u, ok := sessionUser(sessions.Default(c))
	if !ok {
		return 0, false
	}
	return u.ID, true
}
