// Package layout はナビゲーションバーとサイドバーのデータを組み立てます。
// 描画はクライアント側で行うため、ここでは JSON に変換できる構造だけを扱います。
package layout

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/events"
)

const (
	// ActiveNavClass は選択中のナビゲーション項目に付けるクラスです。
	ActiveNavClass = "layui-this"
	// ActiveSidebarClass は選択中のサイドバー項目に付けるクラスです。
	ActiveSidebarClass = "active"
)

// Item はメニュー項目です。
type Item struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Icon     string `json:"icon,omitempty"`
	Class    string `json:"class"`
	Children []Item `json:"children,omitempty"`
}

// Nav はナビゲーションバーです。user.nav.render のリスナーが Items を追加します。
type Nav struct {
	Items []Item `json:"items"`
}

// Add は項目を追加します。
func (n *Nav) Add(items ...Item) {
	n.Items = append(n.Items, items...)
}

// Group はサイドバーの見出しと項目です。
type Group struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Sidebar はサイドバーです。user.sidebar.render のリスナーが Groups を追加します。
type Sidebar struct {
	URI    string  `json:"uri"`
	Groups []Group `json:"groups"`
}

// Add はグループを追加します。
func (s *Sidebar) Add(groups ...Group) {
	s.Groups = append(s.Groups, groups...)
}

// Service はイベントバスを通じてメニューを組み立てます。
type Service struct {
	bus *events.Bus
}

// NewService は Service を作成します。
func NewService(bus *events.Bus) *Service {
	return &Service{bus: bus}
}

// NavData はナビゲーションバーを組み立て、uri に一致する項目へ ActiveNavClass を付けます。
func (s *Service) NavData(ctx context.Context, uri string) *Nav {
	nav := &Nav{Items: []Item{}}
	s.bus.Emit(ctx, events.NavRender, nav)
	markNav(nav.Items, uri)
	return nav
}

func markNav(items []Item, uri string) {
	for i := range items {
		items[i].Class = NavActiveClass(uri, items[i].URL)
		markNav(items[i].Children, uri)
	}
}

// SidebarData はユーザーセンターの既定メニューを組み立て、user.sidebar.render を発行します。
func (s *Service) SidebarData(ctx context.Context, uri string) *Sidebar {
	sidebar := &Sidebar{
		URI: uri,
		Groups: []Group{{
			Name: "User center",
			Items: []Item{
				{Name: "Profile", URL: "/app/user"},
				{Name: "Avatar", URL: "/app/user/avatar"},
				{Name: "Password", URL: "/app/user/password"},
			},
		}},
	}
	s.bus.Emit(ctx, events.SidebarRender, sidebar)

	current := strings.Trim(uri, "/")
	for g := range sidebar.Groups {
		for i, item := range sidebar.Groups[g].Items {
			if strings.Trim(item.URL, "/") == current {
				sidebar.Groups[g].Items[i].Class = ActiveSidebarClass
			}
		}
	}
	return sidebar
}

// NavActiveClass は uri が path の配下にある場合に ActiveNavClass を返します。
// path が複数階層の場合は最後の階層を除いた部分で前方一致を判定します。
func NavActiveClass(uri, path string) string {
	haystack := strings.Trim(uri, "/")
	path = strings.Trim(path, "/")
	if haystack == "" && path == "" {
		return ActiveNavClass
	}
	if path == "" {
		return ""
	}

	needle := path
	if segments := strings.Split(path, "/"); len(segments) > 1 {
		needle = strings.Join(segments[:len(segments)-1], "/")
	}
	if strings.HasPrefix(haystack, needle) {
		return ActiveNavClass
	}
	return ""
}

// HandleNav は GET /app/user/nav のハンドラーです。
func (s *Service) HandleNav(c *gin.Context) {
	nav := s.NavData(c.Request.Context(), currentURI(c))
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": nav})
}

// HandleSidebar は GET /app/user/sidebar のハンドラーです。
func (s *Service) HandleSidebar(c *gin.Context) {
	sidebar := s.SidebarData(c.Request.Context(), currentURI(c))
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": sidebar})
}

// currentURI は表示中のページのパスです。uri パラメータがない場合は Referer から取ります。
func currentURI(c *gin.Context) string {
	if uri := c.Query("uri"); uri != "" {
		return uri
	}
	if ref, err := url.Parse(c.Request.Referer()); err == nil {
		return ref.Path
	}
	return ""
}
