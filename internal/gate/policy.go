// Package gate はリクエストごとの認可判定（ログイン要否・データ制限設定の検証）を提供します。
package gate

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/apperr"
)

// AllActions は全アクションをログイン不要にするワイルドカードです。
const AllActions = "*"

// DataLimitPolicy は行レベルのデータ制限設定です。
// Enabled が true の場合、Field（所有者カラム）は必須です。
type DataLimitPolicy struct {
	Enabled bool
	Field   string
}

// Validate は設定の整合性を検証します。
func (p DataLimitPolicy) Validate() error {
	if p.Enabled && p.Field == "" {
		return apperr.New(apperr.KindConfiguration, "data limit is enabled but no owner field is configured")
	}
	return nil
}

// ControllerPolicy はコントローラー単位の静的な認可設定です。
type ControllerPolicy struct {
	NoLogin   []string
	DataLimit DataLimitPolicy
}

// AllowsAnonymous は action がログイン不要かどうかを返します。
func (p ControllerPolicy) AllowsAnonymous(action string) bool {
	for _, a := range p.NoLogin {
		if a == AllActions || a == action {
			return true
		}
	}
	return false
}

// Registry はコントローラー名から ControllerPolicy を引く登録簿です。
// 起動時に登録し、以降は読み取りのみ行います。
type Registry struct {
	mu       sync.RWMutex
	policies map[string]ControllerPolicy
}

// NewRegistry は空の Registry を作成します。
func NewRegistry() *Registry {
	return &Registry{policies: map[string]ControllerPolicy{}}
}

// Register はコントローラーのポリシーを登録します。
func (r *Registry) Register(controller string, policy ControllerPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[controller] = policy
}

// Lookup はコントローラーのポリシーを返します。
func (r *Registry) Lookup(controller string) (ControllerPolicy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[controller]
	return p, ok
}

// RouteMeta はルートに紐づくメタデータです。
// Controller が空のルートは関数ハンドラーとして扱います。
type RouteMeta struct {
	App        string
	Controller string
	Action     string
	NoLogin    bool
}

// Routes はメソッドとルートパターンから RouteMeta を引く登録簿です。
type Routes struct {
	mu     sync.RWMutex
	routes map[string]RouteMeta
}

// NewRoutes は空の Routes を作成します。
func NewRoutes() *Routes {
	return &Routes{routes: map[string]RouteMeta{}}
}

// Add はルートを登録します。path は gin のルートパターン（/users/:id など）です。
func (r *Routes) Add(method, path string, meta RouteMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[routeKey(method, path)] = meta
}

// Lookup は登録済みのルートを返します。
func (r *Routes) Lookup(method, path string) (RouteMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.routes[routeKey(method, path)]
	return m, ok
}

// Handle は gin へのルート登録と Routes への登録を同時に行います。
func (r *Routes) Handle(router gin.IRoutes, method, path string, meta RouteMeta, handlers ...gin.HandlerFunc) {
	router.Handle(method, path, handlers...)
	if g, ok := router.(*gin.RouterGroup); ok {
		path = joinPath(g.BasePath(), path)
	}
	r.Add(method, path, meta)
}

func routeKey(method, path string) string {
	return method + " " + path
}

func joinPath(base, path string) string {
	if base == "" || base == "/" {
		return path
	}
	if path == "" || path == "/" {
		return base
	}
	if base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return base + path
}
