package gate

import (
	"fmt"
	"net/http"
)

// Outcome は認可判定の結果の種類です。
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomePreflight
	OutcomeDeny
)

// Decision は1リクエスト分の認可判定です。Deny の場合のみ Code と Message を持ちます。
type Decision struct {
	Outcome Outcome
	Code    int
	Message string
}

// Allowed は処理を続行してよいかどうかを返します。
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

var (
	allow     = Decision{Outcome: OutcomeAllow}
	preflight = Decision{Outcome: OutcomePreflight}
)

func deny(code int, message string) Decision {
	return Decision{Outcome: OutcomeDeny, Code: code, Message: message}
}

// 拒否時のメッセージ
const (
	MessageLoginRequired      = "please log in"
	MessageControllerNotFound = "controller not found"
)

// Request は判定に必要なリクエスト情報です。
type Request struct {
	App    string
	Method string
	// Route はマッチしたルートのメタデータです。ルートがない場合は nil です。
	Route *RouteMeta
	// LoggedIn はセッションに利用者が存在するかを返します。必要になった時だけ呼ばれます。
	LoggedIn func() bool
}

// Decide は登録済みのポリシーとリクエスト情報から認可判定を行います。
// 上から順に評価し、最初に該当した規則の結果を返します。
func Decide(req Request, registry *Registry, excludedApps map[string]struct{}) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			decision = deny(http.StatusInternalServerError, fmt.Sprint(r))
		}
	}()

	if _, ok := excludedApps[req.App]; ok && req.App != "" {
		return allow
	}

	if req.Method == http.MethodOptions {
		return preflight
	}

	if req.Route != nil && req.Route.Controller != "" {
		policy, ok := registry.Lookup(req.Route.Controller)
		if !ok {
			return deny(http.StatusNotFound, MessageControllerNotFound)
		}
		if policy.AllowsAnonymous(req.Route.Action) {
			return allow
		}
		if err := policy.DataLimit.Validate(); err != nil {
			return deny(http.StatusInternalServerError, err.Error())
		}
	} else {
		if req.Route == nil {
			return allow
		}
		if req.Route.NoLogin {
			return allow
		}
	}

	if req.LoggedIn != nil && req.LoggedIn() {
		return allow
	}
	return deny(http.StatusUnauthorized, MessageLoginRequired)
}
