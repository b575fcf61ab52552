package crud

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/gate"
)

// AppName は CRUD ルートが属するアプリ名です。
const AppName = "crud"

// Register はコントローラーのポリシーを registry に登録し、
// 各アクションを <group>/<resource>/<action> にルーティングします。
func Register(group *gin.RouterGroup, routes *gate.Routes, registry *gate.Registry, ctrl *Controller) {
	res := ctrl.Resource()
	registry.Register(res.Name, res.Policy)

	rg := group.Group("/" + res.Name)
	for _, action := range ctrl.Actions() {
		routes.Handle(rg, action.Method, "/"+action.Name, gate.RouteMeta{
			App:        AppName,
			Controller: res.Name,
			Action:     action.Name,
		}, action.Handler)
	}
}
