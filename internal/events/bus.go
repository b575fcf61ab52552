// Package events はプロセス内の同期イベントバスを提供します。
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/user-kit/internal/logger"
)

// イベント名
const (
	UserLogin     = "user.login"
	UserLogout    = "user.logout"
	NavRender     = "user.nav.render"
	SidebarRender = "user.sidebar.render"
)

// Listener はイベントを受け取る関数です。
type Listener func(ctx context.Context, payload any) error

// Bus はイベント名ごとのリスナーを保持します。
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    logger.Logger
}

// NewBus は Bus を作成します。
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		listeners: map[string][]Listener{},
		logger:    log.Component("events"),
	}
}

// On はリスナーを登録します。
func (b *Bus) On(name string, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// Emit は登録順にリスナーを同期実行します。
// リスナーのエラーやパニックはログに残し、後続のリスナーの実行は続けます。
func (b *Bus) Emit(ctx context.Context, name string, payload any) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[name]...)
	b.mu.RUnlock()

	for _, l := range listeners {
		if err := b.call(ctx, l, payload); err != nil {
			b.logger.Error().Err(err).Str("event", name).Msg("listener failed")
		}
	}
}

func (b *Bus) call(ctx context.Context, l Listener, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l(ctx, payload)
}
