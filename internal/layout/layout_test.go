package layout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/events"
	"github.com/yourusername/user-kit/internal/logger"
)

func TestNavActiveClass(t *testing.T) {
	tests := []struct {
		uri, path, want string
	}{
		{uri: "/", path: "/", want: ActiveNavClass},
		{uri: "", path: "", want: ActiveNavClass},
		{uri: "/app/user", path: "", want: ""},
		{uri: "/app/user/profile", path: "/app/user/index", want: ActiveNavClass},
		{uri: "/app/blog/list", path: "/app/user/index", want: ""},
		{uri: "/docs/intro", path: "/docs", want: ActiveNavClass},
		{uri: "/", path: "/docs", want: ""},
	}

	for _, tt := range tests {
		if got := NavActiveClass(tt.uri, tt.path); got != tt.want {
			t.Errorf("NavActiveClass(%q, %q) = %q, want %q", tt.uri, tt.path, got, tt.want)
		}
	}
}

func TestNavDataCollectsListeners(t *testing.T) {
	bus := events.NewBus(logger.NewTestLogger())
	bus.On(events.NavRender, func(ctx context.Context, payload any) error {
		payload.(*Nav).Add(
			Item{Name: "Home", URL: "/"},
			Item{Name: "Blog", URL: "/app/blog/index", Children: []Item{{Name: "New", URL: "/app/blog/new"}}},
		)
		return nil
	})

	nav := NewService(bus).NavData(context.Background(), "/app/blog/new")
	if len(nav.Items) != 2 {
		t.Fatalf("items = %d", len(nav.Items))
	}
	if nav.Items[0].Class != "" {
		t.Fatalf("home class = %q", nav.Items[0].Class)
	}
	if nav.Items[1].Class != ActiveNavClass || nav.Items[1].Children[0].Class != ActiveNavClass {
		t.Fatalf("blog classes = %q, %q", nav.Items[1].Class, nav.Items[1].Children[0].Class)
	}
}

func TestSidebarData(t *testing.T) {
	bus := events.NewBus(logger.NewTestLogger())
	bus.On(events.SidebarRender, func(ctx context.Context, payload any) error {
		payload.(*Sidebar).Add(Group{Name: "Orders", Items: []Item{{Name: "My orders", URL: "/app/shop/orders"}}})
		return nil
	})

	sidebar := NewService(bus).SidebarData(context.Background(), "/app/user/avatar/")
	if len(sidebar.Groups) != 2 {
		t.Fatalf("groups = %d", len(sidebar.Groups))
	}
	items := sidebar.Groups[0].Items
	if items[0].Class != "" || items[1].Class != ActiveSidebarClass || items[2].Class != "" {
		t.Fatalf("unexpected classes: %+v", items)
	}
}

func TestHandleSidebar(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(events.NewBus(logger.NewTestLogger()))

	router := gin.New()
	router.GET("/app/user/sidebar", svc.HandleSidebar)

	req := httptest.NewRequest(http.MethodGet, "/app/user/sidebar", nil)
	req.Header.Set("Referer", "https://example.com/app/user/password?tab=1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body struct {
		Code int     `json:"code"`
		Data Sidebar `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Code != 0 || body.Data.URI != "/app/user/password" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if body.Data.Groups[0].Items[2].Class != ActiveSidebarClass {
		t.Fatalf("password item not active: %s", w.Body.String())
	}
}
