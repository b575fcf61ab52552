package gate

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/logger"
)

// DefaultLoginPath は未ログイン時のリダイレクト先です。
const DefaultLoginPath = "/app/user/login"

// Identity はセッションから利用者IDを取り出す関数です。
type Identity func(c *gin.Context) (int64, bool)

// Options は Gate の設定です。
type Options struct {
	Registry     *Registry
	Routes       *Routes
	Identity     Identity
	ExcludedApps []string
	LoginPath    string
	Logger       logger.Logger
}

// Gate は認可判定を行う gin ミドルウェアです。
type Gate struct {
	registry  *Registry
	routes    *Routes
	identity  Identity
	excluded  map[string]struct{}
	loginPath string
	logger    logger.Logger
}

// New は Gate を作成します。
func New(opts Options) *Gate {
	excluded := make(map[string]struct{}, len(opts.ExcludedApps))
	for _, app := range opts.ExcludedApps {
		if app = strings.TrimSpace(app); app != "" {
			excluded[app] = struct{}{}
		}
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	routes := opts.Routes
	if routes == nil {
		routes = NewRoutes()
	}
	return &Gate{
		registry:  registry,
		routes:    routes,
		identity:  opts.Identity,
		excluded:  excluded,
		loginPath: loginPath,
		logger:    opts.Logger.Component("gate"),
	}
}

// Middleware はエンジン全体に適用する認可ミドルウェアを返します。
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := Request{
			Method: c.Request.Method,
			LoggedIn: func() bool {
				if g.identity == nil {
					return false
				}
				_, ok := g.identity(c)
				return ok
			},
		}
		if meta, ok := g.routes.Lookup(c.Request.Method, c.FullPath()); ok {
			req.Route = &meta
			req.App = meta.App
		}

		decision := Decide(req, g.registry, g.excluded)
		switch decision.Outcome {
		case OutcomeAllow:
			c.Next()
		case OutcomePreflight:
			c.AbortWithStatus(http.StatusOK)
		default:
			g.logger.Debug().
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("code", decision.Code).
				Msg(decision.Message)
			g.render(c, decision)
		}
	}
}

func (g *Gate) render(c *gin.Context, d Decision) {
	if ExpectsJSON(c.Request) {
		c.AbortWithStatusJSON(d.Code, gin.H{
			"code": d.Code,
			"msg":  d.Message,
			"data": []any{},
		})
		return
	}
	c.Redirect(http.StatusFound, g.loginPath)
	c.Abort()
}

// ExpectsJSON はクライアントが JSON の応答を期待しているかを返します。
func ExpectsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "json")
}
