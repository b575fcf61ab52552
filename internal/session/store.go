// Package session は Redis をバックエンドにしたセッションストアと、
// トークンからセッションIDを決定するミドルウェアを提供します。
package session

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/google/uuid"
	gsessions "github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/user-kit/internal/config"
)

const (
	// CookieName はセッションIDを保持するクッキー名です。
	CookieName = "uk_session"

	keyPrefix  = "session_"
	defaultTTL = 12 * time.Hour
)

// RedisStore はセッションの値を gob でエンコードして Redis に保存します。
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	options *gsessions.Options
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: keyPrefix,
		options: &gsessions.Options{
			Path:     "/",
			MaxAge:   int(defaultTTL.Seconds()),
			HttpOnly: true,
		},
	}
}

// Options はクッキーとセッションの有効期間を設定します。
func (s *RedisStore) Options(opts sessions.Options) {
	s.options = opts.ToGorillaOptions()
}

// Get はリクエスト単位でキャッシュされたセッションを返します。
func (s *RedisStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New はセッションを読み込みます。該当するデータがない場合は新規セッションを返します。
func (s *RedisStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	sess := gsessions.NewSession(s, name)
	opts := *s.options
	sess.Options = &opts
	sess.IsNew = true

	// トークン由来のIDはデータの有無に関わらずそのまま使う
	if token, ok := TokenFromContext(r.Context()); ok {
		sess.ID = token
	} else if c, err := r.Cookie(name); err == nil && ValidID(c.Value) {
		sess.ID = c.Value
	}
	if sess.ID == "" {
		return sess, nil
	}

	found, err := s.load(r.Context(), sess)
	if err != nil {
		return sess, err
	}
	if found {
		sess.IsNew = false
	} else if _, ok := TokenFromContext(r.Context()); !ok {
		sess.ID = ""
	}
	return sess, nil
}

// Save はセッションを Redis に保存し、セッションIDのクッキーを書き込みます。
// MaxAge が負の場合はセッションを破棄します。
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, sess *gsessions.Session) error {
	ctx := r.Context()

	if sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := s.client.Del(ctx, s.key(sess.ID)).Err(); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		http.SetCookie(w, gsessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	if sess.ID == "" {
		sess.ID = NewID()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sess.Values); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Duration(sess.Options.MaxAge) * time.Second
	if ttl == 0 {
		ttl = defaultTTL
	}
	if err := s.client.Set(ctx, s.key(sess.ID), buf.Bytes(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	http.SetCookie(w, gsessions.NewCookie(sess.Name(), sess.ID, sess.Options))
	return nil
}

func (s *RedisStore) load(ctx context.Context, sess *gsessions.Session) (bool, error) {
	data, err := s.client.Get(ctx, s.key(sess.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sess.Values); err != nil {
		return false, fmt.Errorf("failed to decode session: %w", err)
	}
	return true, nil
}

// Rotate は保存済みのセッションを破棄し、次の Save で新しいIDを振り直します。
// ログイン時に呼び出します。トークン由来のIDはクライアントが決めるため対象外です。
func (s *RedisStore) Rotate(r *http.Request, name string) error {
	if _, ok := TokenFromContext(r.Context()); ok {
		return nil
	}
	sess, err := s.Get(r, name)
	if err != nil {
		return err
	}
	if sess.ID == "" {
		return nil
	}
	if err := s.client.Del(r.Context(), s.key(sess.ID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	sess.ID = ""
	sess.IsNew = true
	return nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// NewID は32文字の16進数のセッションIDを生成します。
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewStore は設定に応じてセッションストアを作成します。
func NewStore(cfg *config.Config, client redis.UniversalClient) sessions.Store {
	var store sessions.Store
	if cfg.SessionStore == config.SessionStoreCookie || client == nil {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	} else {
		store = NewRedisStore(client)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == "release",
		SameSite: http.SameSiteLaxMode,
	})
	return store
}
